// Package constants holds vocabulary shared across the ingest pipeline:
// PREMIS event types, checksum algorithms, and the handful of filename
// patterns the pipeline needs to recognize independent of any one
// package type's configuration.
package constants

import (
	"regexp"
)

// SequenceNumberPattern matches a trailing numeric sequence on a filename,
// e.g. "39002besthay_000001.jp2" -> "000001". Volume.FileGroupsByPage
// requires every content file to match this.
var SequenceNumberPattern = regexp.MustCompile(`(\d+)\.[^.]+$`)

const (
	AlgMd5    = "md5"
	AlgSha256 = "sha256"
)

// ChecksumAlgorithms lists the digest algorithms the pipeline knows how
// to compute and verify.
var ChecksumAlgorithms = []string{AlgMd5, AlgSha256}

// PREMIS event types, as defined by the Library of Congress preservation
// vocabulary (http://id.loc.gov/vocabulary/preservation/eventType). Only
// the subset this pipeline actually emits or re-emits is listed; package
// types reference these by the EventType constants, not by free text, so
// a typo in a plugin's premis_events list fails registration instead of
// silently minting an unrecognized event.
const (
	EventCapture              = "capture"
	EventCompression          = "compression"
	EventCreation             = "creation"
	EventDecompression        = "decompression"
	EventDeletion             = "deletion"
	EventDigestCalculation    = "message digest calculation"
	EventFixityCheck          = "fixity check"
	EventIdentifierAssignment = "identifier assignment"
	EventIngestion            = "ingestion"
	EventMigration            = "migration"
	EventNormalization        = "normalization"
	EventReplication          = "replication"
	EventValidation           = "validation"
	EventVirusCheck           = "virus check"

	// EventZipCompression, EventZipMD5Create and EventPackageValidation
	// are HathiTrust-specific extensions to the LOC vocabulary: they
	// record the AIP-packing step, which the LOC vocabulary's generic
	// "compression" event doesn't distinguish from content transcoding.
	EventZipCompression    = "zip compression"
	EventZipMD5Create      = "zip md5 create"
	EventPackageValidation = "package validation"
)

// EventTypes is the catalog every package type's premis_events,
// source_premis_events, and source_premis_events_extract entries must be
// drawn from: every referenced event code must exist in this list.
var EventTypes = []string{
	EventCapture,
	EventCompression,
	EventCreation,
	EventDecompression,
	EventDeletion,
	EventDigestCalculation,
	EventFixityCheck,
	EventIdentifierAssignment,
	EventIngestion,
	EventMigration,
	EventNormalization,
	EventReplication,
	EventValidation,
	EventVirusCheck,
	EventZipCompression,
	EventZipMD5Create,
	EventPackageValidation,
}

// EventTypeValid reports whether eventType is a recognized PREMIS event.
func EventTypeValid(eventType string) bool {
	for _, t := range EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// Outcome values recorded on a PREMIS event's eventOutcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// HTNamespaceUUID is the namespace UUID used to derive deterministic
// PREMIS event identifiers (Volume.MakePremisUUID). Fixed so that
// reingesting an object at an unchanged wall-clock time reproduces
// identical event identifiers.
const HTNamespaceUUID = "09A5DAD6-3484-11E0-9D45-077BD5215A96"

// Logical filegroup names a PackageType's filegroups map commonly uses.
// PackageType descriptors aren't restricted to this list (a provider may
// introduce a new logical group), but these get special treatment (e.g.
// FileGroupImage drives Volume.PageCount).
const (
	FileGroupImage = "image"
	FileGroupOCR   = "ocr"
	FileGroupHOCR  = "hocr"
	FileGroupPDF   = "pdf"
	FileGroupEPUB  = "epub"
)

// Statuses. StatusCollated and StatusPunted are the release states:
// terminal statuses from which the scheduler will not re-dispatch a Job
// (see DefaultReleaseStates). StatusReady is a starting status, not a
// release state.
const (
	StatusCollated = "collated"
	StatusPunted   = "punted"
	StatusReady    = "ready"
)

// DefaultReleaseStates is used when a config file doesn't set
// daemon.release_states.
var DefaultReleaseStates = []string{StatusCollated, StatusPunted}
