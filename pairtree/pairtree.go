// Package pairtree implements the library-standard pairtree identifier
// encoding: an opaque objid is sharded into a balanced
// directory tree of 2-character components, with "clean" (non-visible,
// non-printable, or reserved) characters escaped.
//
// There is no pairtree implementation anywhere in the retrieved example
// corpus to ground this on; it's pure, dependency-free string munging,
// which is exactly the kind of narrow, self-contained algorithm the
// standard library is the right tool for.
package pairtree

import (
	"fmt"
	"strings"
)

// reserved is the set of characters the pairtree spec considers unsafe
// for a path segment; Encode escapes each as "^" plus two hex digits.
const reserved = `"*+,<=>?\^|` + "`"

// Encode implements s2ppchars: the "clean" form of objid used as the
// final pairtree path component (pt_objid).
func Encode(objid string) string {
	var b strings.Builder
	for _, r := range objid {
		switch {
		case r <= 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "^%02x", r)
		case r == '/':
			b.WriteString("=")
		case r == ':':
			b.WriteString("+")
		case r == '.':
			b.WriteString(",")
		case strings.ContainsRune(reserved, r):
			fmt.Fprintf(&b, "^%02x", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Path implements id2ppath: the sequence of 2-character shard directories
// derived from the encoded form of objid. The final pairtree path is
// Path(objid) joined with Encode(objid) as the leaf directory.
func Path(objid string) []string {
	encoded := Encode(objid)
	shards := make([]string, 0, len(encoded)/2+1)
	for len(encoded) > 2 {
		shards = append(shards, encoded[:2])
		encoded = encoded[2:]
	}
	if len(encoded) > 0 {
		shards = append(shards, encoded)
	}
	return shards
}

// Dir joins the pairtree shard path and the leaf pt_objid directory under
// root, e.g. Dir("/obj", "yale", "39002X") ->
// "/obj/yale/39/00/2X/39002X".
func Dir(root, namespace, objid string) string {
	ptObjid := Encode(objid)
	parts := append([]string{root, namespace}, Path(objid)...)
	parts = append(parts, ptObjid)
	return strings.Join(parts, "/")
}
