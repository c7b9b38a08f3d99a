// Package identifiers defines the composite keys that name runs and
// attributes throughout the query engine.
package identifiers

import "fmt"

// ProjectIdentifier names a project in "workspace/project" form.
type ProjectIdentifier string

// SysID is the backend-assigned identifier of a single run.
type SysID string

// CustomRunID is a user-assigned run identifier.
type CustomRunID string

// RunIdentifier uniquely names one tracked run within a project.
// It is comparable and used as a map key.
type RunIdentifier struct {
	Project ProjectIdentifier
	SysID   SysID
}

// String renders the identifier as "project/sys_id", the form the
// backend expects in series holder references.
func (r RunIdentifier) String() string {
	return fmt.Sprintf("%s/%s", r.Project, r.SysID)
}

// AttributeType is the closed set of attribute value kinds.
type AttributeType string

const (
	TypeFloat           AttributeType = "float"
	TypeInt             AttributeType = "int"
	TypeString          AttributeType = "string"
	TypeBool            AttributeType = "bool"
	TypeDatetime        AttributeType = "datetime"
	TypeStringSet       AttributeType = "string_set"
	TypeFile            AttributeType = "file"
	TypeFloatSeries     AttributeType = "float_series"
	TypeStringSeries    AttributeType = "string_series"
	TypeFileSeries      AttributeType = "file_series"
	TypeHistogramSeries AttributeType = "histogram_series"
)

// AttributeDefinition is an immutable (name, type) pair. Two
// definitions are equal iff both fields match.
type AttributeDefinition struct {
	Name string
	Type AttributeType
}

// RunAttributeDefinition pairs a run with one of its attributes: the
// atomic unit of work for series retrieval. Comparable, used as a map
// key.
type RunAttributeDefinition struct {
	Run       RunIdentifier
	Attribute AttributeDefinition
}

// ParseAttributeType validates a wire-format type string.
func ParseAttributeType(s string) (AttributeType, error) {
	switch t := AttributeType(s); t {
	case TypeFloat, TypeInt, TypeString, TypeBool, TypeDatetime,
		TypeStringSet, TypeFile, TypeFloatSeries, TypeStringSeries,
		TypeFileSeries, TypeHistogramSeries:
		return t, nil
	}
	return "", fmt.Errorf("unknown attribute type %q", s)
}

// IsSeries reports whether the attribute holds a series of values
// rather than a single scalar.
func (t AttributeType) IsSeries() bool {
	switch t {
	case TypeFloatSeries, TypeStringSeries, TypeFileSeries, TypeHistogramSeries:
		return true
	}
	return false
}

// SysIDSizeEstimate is the assumed serialized size of one run
// identifier inside a request body. Backend IDs are UUID-like, so a
// fixed estimate is both cheap and stable run-to-run.
const SysIDSizeEstimate = 50

// EstimatedSize returns the approximate number of bytes the definition
// contributes to a serialized request. Monotonic in the name length,
// not exact.
func (a AttributeDefinition) EstimatedSize() int {
	return len(a.Name)
}

// EstimatedSize returns the approximate serialized size of the pair:
// one run reference plus the attribute name.
func (r RunAttributeDefinition) EstimatedSize() int {
	return SysIDSizeEstimate + r.Attribute.EstimatedSize()
}
