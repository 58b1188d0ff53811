// Command feed is the pipeline's CLI entry point. Its core scope is
// diagnostic: -version prints a one-line banner, -Version additionally
// lists every registered Namespace, PackageType, and Stage. Given
// -namespace/-packagetype/-objid it also runs one object through the
// pipeline to completion, the way apt_fetch-style apps in this codebase
// take explicit identifying flags rather than polling a queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/engine"
	"github.com/hathitrust/feed/job"
	"github.com/hathitrust/feed/namespace"
	"github.com/hathitrust/feed/packagetype"
	"github.com/hathitrust/feed/registry"
	_ "github.com/hathitrust/feed/stage"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

type commandLine struct {
	configFile  string
	nsqdAddress string
	namespaceID string
	packageType string
	objid       string
	status      string
	version     bool
	fullVersion bool
}

func main() {
	cl := parseCommandLine()

	if cl.version || cl.fullVersion {
		printVersion(cl.fullVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(cl.configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}

	eng, err := engine.New(cfg, cl.nsqdAddress)
	if err != nil {
		fmt.Fprintln(os.Stderr, "starting engine:", err)
		os.Exit(1)
	}
	defer eng.Close()

	ns, err := namespace.Lookup(cl.namespaceID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unknown namespace:", cl.namespaceID)
		os.Exit(2)
	}
	pt, err := packagetype.Lookup(cl.packageType)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unknown packagetype:", cl.packageType)
		os.Exit(2)
	}

	j := job.New(ns, pt, cl.objid, cl.status, cfg, eng.Store)
	ctx := context.Background()
	for j.Runnable() {
		if !j.Run(ctx) {
			break
		}
	}
	if err := j.Update(ctx, eng); err != nil {
		eng.Log.Errorf("updating %s.%s: %v", cl.namespaceID, cl.objid, err)
	}

	if j.LastError() != nil {
		fmt.Fprintf(os.Stderr, "%s.%s failed at %s: %v\n", cl.namespaceID, cl.objid, j.Status, j.LastError())
		os.Exit(3)
	}
	fmt.Printf("%s.%s reached status %s\n", cl.namespaceID, cl.objid, j.Status)
}

func parseCommandLine() commandLine {
	var cl commandLine
	flag.StringVar(&cl.configFile, "config", "", "Path to feed config file")
	flag.StringVar(&cl.nsqdAddress, "nsqd", "", "Address of the nsqd instance to publish status changes to")
	flag.StringVar(&cl.namespaceID, "namespace", "", "Namespace identifier of the object to process")
	flag.StringVar(&cl.packageType, "packagetype", "", "PackageType identifier of the object to process")
	flag.StringVar(&cl.objid, "objid", "", "Identifier of the object to process")
	flag.StringVar(&cl.status, "status", "new", "Status to start processing from")
	flag.BoolVar(&cl.version, "version", false, "Print version and exit")
	flag.BoolVar(&cl.fullVersion, "Version", false, "Print version and registered descriptors, then exit")
	flag.Parse()

	if cl.version || cl.fullVersion {
		return cl
	}
	if cl.configFile == "" || cl.namespaceID == "" || cl.packageType == "" || cl.objid == "" {
		printUsage()
		os.Exit(1)
	}
	return cl
}

func printVersion(full bool) {
	fmt.Printf("feed %s\n", version)
	if !full {
		return
	}
	fmt.Println("namespaces:", registry.Enumerate(registry.KindNamespace))
	fmt.Println("packagetypes:", registry.Enumerate(registry.KindPackageType))
	fmt.Println("stages:", registry.Enumerate(registry.KindStage))
}

func printUsage() {
	message := `
feed runs one object through the ingest pipeline: it advances the object
through the Stage its PackageType's stage_map names for its current
status, repeating until a Stage fails or no Stage is mapped for the
resulting status, then persists the result to feed_queue.

Usage: feed -config=<path> -namespace=<id> -packagetype=<id> -objid=<id> [-status=new] [-nsqd=<host:port>]
       feed -version
       feed -Version
`
	fmt.Fprintln(os.Stderr, message)
}
