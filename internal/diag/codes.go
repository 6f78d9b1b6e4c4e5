package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Template expansion
	TplInfo                Code = 1000
	TplUnterminated        Code = 1001
	TplUnresolvedVar       Code = 1002
	TplShadowedVar         Code = 1003
	TplCyclicInclude       Code = 1004
	TplDepthExceeded       Code = 1005
	TplMissingTemplate     Code = 1006
	TplEmptyTemplate       Code = 1007
	TplUnmatchedFilter     Code = 1008
	TplUnknownTag          Code = 1009
	TplMalformedRepeat     Code = 1010
	TplMissingVarName      Code = 1011
	TplParamOutsideDesc    Code = 1012
	TplOrphanFragments     Code = 1013
	TplUnbalancedBraces    Code = 1014
	TplRedefinedVar        Code = 1015
	TplMissingTemplateName Code = 1016
	TplScaffolded          Code = 1017

	// Parameter descriptors
	ParInfo           Code = 2000
	ParMissingDefault Code = 2001
	ParNoIdentifier   Code = 2002
	ParTypeNotInfered Code = 2003
	ParDuplicate      Code = 2004
	ParStrayLine      Code = 2005
	ParBadID          Code = 2006
	ParExcessFields   Code = 2007
	ParIDOverridden   Code = 2008
	ParUnknownSubset  Code = 2009

	IOLoadFileError  Code = 4001
	IOWriteSkipped   Code = 4002
	IOWriteFileError Code = 4003

	ProjInfo           Code = 5000
	ProjInvalidEntry   Code = 5001
	ProjDuplicateFile  Code = 5002
	ProjUnknownKey     Code = 5003

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	TplInfo:                "Template information",
	TplUnterminated:        "Unterminated directive",
	TplUnresolvedVar:       "Unresolved variable",
	TplShadowedVar:         "Variable shadows an enclosing binding",
	TplCyclicInclude:       "Cyclic sub-template inclusion",
	TplDepthExceeded:       "Inclusion depth limit exceeded",
	TplMissingTemplate:     "Missing sub-template",
	TplEmptyTemplate:       "Empty sub-template",
	TplUnmatchedFilter:     "Tag filter selects no parameters",
	TplUnknownTag:          "Unknown tag in filter",
	TplMalformedRepeat:     "Malformed repeat directive",
	TplMissingVarName:      "Variable definition without a name",
	TplParamOutsideDesc:    "Parameter declaration outside a descriptor",
	TplOrphanFragments:     "Fragments for an insertion point that is never spliced",
	TplUnbalancedBraces:    "Unbalanced braces in output",
	TplRedefinedVar:        "Variable redefined in the same scope",
	TplMissingTemplateName: "Inclusion without a template name",
	TplScaffolded:          "Blank sub-template created",
	ParInfo:                "Parameter information",
	ParMissingDefault:      "Missing default value",
	ParNoIdentifier:        "Parameter without identifier",
	ParTypeNotInfered:      "Data type could not be inferred",
	ParDuplicate:           "Duplicate parameter identifier",
	ParStrayLine:           "Unexpected line in descriptor",
	ParBadID:               "Invalid numeric parameter id",
	ParExcessFields:        "Too many fields in parameter declaration",
	ParIDOverridden:        "Explicit parameter id replaced by auto-increment",
	ParUnknownSubset:       "Unknown parameter in file parameter list",
	IOLoadFileError:        "I/O error",
	IOWriteSkipped:         "Existing file not overwritten",
	IOWriteFileError:       "Write error",
	ProjInfo:               "Project information",
	ProjInvalidEntry:       "Invalid manifest entry",
	ProjDuplicateFile:      "Duplicate output file",
	ProjUnknownKey:         "Unknown manifest key",
	ObsInfo:                "Observability information",
	ObsTimings:             "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("TPL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PAR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
