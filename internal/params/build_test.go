package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paramgen/internal/diag"
	"paramgen/internal/directive"
	"paramgen/internal/source"
)

func buildString(t *testing.T, content string, opts Options) (*Table, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("params.desc", []byte(content)))
	bag := diag.NewBag(64)
	return Build(file, diag.BagReporter{Bag: bag}, opts), bag
}

func TestBuildTaggedDescriptorWithMissingDefault(t *testing.T) {
	table, bag := buildString(t, ""+
		"//< parameters of the testing subsystem\n"+
		"$param$ testing_2_param_id 0xCAFE uint16_t [testing_2]\n"+
		"$param$ testing_4_param_id 0xDEADBEEF uint32_t [testing_4]\n"+
		"\n"+
		"$param$ no_default_value_specified\n", Options{})

	require.Equal(t, 3, table.Len())
	t2 := table.Params[0]
	assert.Equal(t, "testing_2_param_id", t2.Identifier)
	assert.Equal(t, "testing_2", t2.Name)
	assert.Equal(t, "testing_2_param_id", t2.EnumName())
	assert.Equal(t, "uint16_t", t2.DataType)
	assert.Equal(t, 16, t2.Bits)
	assert.Equal(t, 2, t2.Size())
	assert.Equal(t, "0xCAFE", t2.Default)
	assert.Equal(t, []string{"testing_2", "testing_2_param_id"}, t2.Tags)
	assert.Equal(t, 0, t2.ID)
	assert.Equal(t, 1, table.Params[1].ID)

	nd := table.Params[2]
	assert.False(t, nd.HasDefault)
	assert.Equal(t, "0", nd.DefaultOr("0"))
	assert.Equal(t, "no_default_value_specified_param_id", nd.EnumName())

	assert.Equal(t, 1, bag.CountCode(diag.ParMissingDefault))
	assert.Equal(t, 1, bag.CountCode(diag.ParTypeNotInfered), "no_default_value_specified has no width suffix")
	assert.False(t, bag.HasErrors())
}

func TestBuildTypeInference(t *testing.T) {
	tests := []struct {
		line     string
		name     string
		dataType string
		bits     int
		warned   bool
	}{
		{"$param$ SBSYS_sensor_loop_param_id_32 100000", "SBSYS_sensor_loop", "uint32_t", 32, false},
		{"$param$ adc_gain_16_param_id 3", "adc_gain", "uint16_t", 16, false},
		{"$param$ ratio 1 float", "ratio", "float", 32, false},
		{"$param$ flags_8 default int64_t", "flags", "int64_t", 64, false},
		{"$param$ mode 1", "mode", "uint32_t", 32, true},
		{"$param$ mode_x_param_id 1 default", "mode_x", "uint32_t", 32, true},
	}

	for _, tt := range tests {
		table, bag := buildString(t, tt.line+"\n", Options{})
		require.Equal(t, 1, table.Len(), tt.line)
		d := table.Params[0]
		assert.Equal(t, tt.name, d.Name, tt.line)
		assert.Equal(t, tt.dataType, d.DataType, tt.line)
		assert.Equal(t, tt.bits, d.Bits, tt.line)
		assert.Equal(t, tt.warned, bag.CountCode(diag.ParTypeNotInfered) == 1, tt.line)
	}
}

func TestBuildFallbackTypeOption(t *testing.T) {
	table, _ := buildString(t, "$param$ mode 1\n", Options{FallbackType: "uint8_t"})
	assert.Equal(t, "uint8_t", table.Params[0].DataType)
	assert.Equal(t, 8, table.Params[0].Bits)
}

func TestBuildDuplicatesFirstWins(t *testing.T) {
	table, bag := buildString(t, ""+
		"$param$ a_16 1\n"+
		"$param$ b_16 2\n"+
		"$param$ a_16 3\n"+
		"$param$ a_16 4\n", Options{})

	require.Equal(t, 2, table.Len())
	a, ok := table.Lookup("a_16")
	require.True(t, ok)
	assert.Equal(t, "1", a.Default)
	assert.Equal(t, 1, table.Params[1].ID, "skipped duplicates do not consume ids")

	require.Equal(t, 2, bag.CountCode(diag.ParDuplicate))
	for _, d := range bag.Items() {
		require.Len(t, d.Notes, 1)
		assert.Equal(t, a.Span, d.Notes[0].Span)
	}
}

func TestBuildMalformedEntries(t *testing.T) {
	table, bag := buildString(t, ""+
		"$param$\n"+
		"$param$ [lonely]\n"+
		"int x;\n"+
		"$param$ ok_8 1 default 7 extra more\n"+
		"$param$ bad_8 1 default seven\n", Options{AutoIncrementStart: NoAutoIncrement})

	require.Equal(t, 2, table.Len())
	assert.Equal(t, 2, bag.CountCode(diag.ParNoIdentifier))
	assert.Equal(t, 1, bag.CountCode(diag.ParStrayLine))
	assert.Equal(t, 1, bag.CountCode(diag.ParExcessFields))
	assert.Equal(t, 1, bag.CountCode(diag.ParBadID))
	assert.Equal(t, 7, table.Params[0].ID)
	assert.Equal(t, 1, table.Params[1].ID, "unspecified ids fall back to the table position")
}

func TestBuildRejectsNegativeIDs(t *testing.T) {
	for _, id := range []string{"-1", "-2"} {
		table, bag := buildString(t, "$param$ neg_8 1 default "+id+"\n", Options{AutoIncrementStart: NoAutoIncrement})
		require.Equal(t, 1, table.Len())
		assert.Equal(t, 1, bag.CountCode(diag.ParBadID), id)
		assert.Equal(t, 0, table.Params[0].ID, id)
	}
}

func TestBuildAutoIncrementOverridesExplicitIDs(t *testing.T) {
	table, bag := buildString(t, ""+
		"$param$ a_8 1 default 40\n"+
		"$param$ b_8 1 default 41\n"+
		"$param$ c_8 1\n", Options{AutoIncrementStart: 100})

	assert.Equal(t, []int{100, 101, 102}, []int{table.Params[0].ID, table.Params[1].ID, table.Params[2].ID})
	require.Equal(t, 1, bag.CountCode(diag.ParIDOverridden))
	assert.Len(t, bag.Items()[0].Notes, 1)
	assert.Equal(t, "0x0064", table.Params[0].HexID())
}

func TestSelect(t *testing.T) {
	table, _ := buildString(t, ""+
		"$param$ p1_8 1 [testing_2]\n"+
		"$param$ p2_8 1 [testing_3]\n"+
		"$param$ p3_8 1 [testing_4|extra]\n"+
		"$param$ p4_8 1 [testing_2]\n", Options{})

	names := func(ds []*Descriptor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}

	all, _ := directive.ParseFilter("all")
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, names(Select(all, table)))

	some, _ := directive.ParseFilter("testing_4|testing_2")
	assert.Equal(t, []string{"p1", "p3", "p4"}, names(Select(some, table)), "table order, not filter order")

	byName, _ := directive.ParseFilter("p2")
	assert.Equal(t, []string{"p2"}, names(Select(byName, table)))

	none, _ := directive.ParseFilter("nothing")
	assert.Empty(t, Select(none, table))
	assert.False(t, table.KnownTag("nothing"))
	assert.True(t, table.KnownTag("extra"))
}

func TestSubset(t *testing.T) {
	table, _ := buildString(t, "$param$ a_8 1\n$param$ b_8 2\n$param$ c_8 3\n", Options{})
	bag := diag.NewBag(8)

	sub := table.Subset([]string{"c", "a_8", "zzz"}, diag.BagReporter{Bag: bag}, source.Span{})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, "a", sub.Params[0].Name)
	assert.Equal(t, "c", sub.Params[1].Name)
	assert.Equal(t, 1, bag.CountCode(diag.ParUnknownSubset))
}

func TestVars(t *testing.T) {
	table, _ := buildString(t, "$param$ SBSYS_sensor_loop_param_id_32 100000 default 5\n", Options{AutoIncrementStart: NoAutoIncrement})
	vars := map[string]string{}
	for _, kv := range table.Params[0].Vars() {
		vars[kv[0]] = kv[1]
	}
	assert.Equal(t, "SBSYS_sensor_loop", vars["p_name"])
	assert.Equal(t, "SBSYS_sensor_loop_param_id_32", vars["p#enumName"])
	assert.Equal(t, "32", vars["p_dType"])
	assert.Equal(t, "4", vars["p_size"])
	assert.Equal(t, "100000", vars["p#defaultValue"])
	assert.Equal(t, "5", vars["p_id"])
	assert.Equal(t, "0x0005", vars["p#hexId"])
}
