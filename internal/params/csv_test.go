package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paramgen/internal/diag"
	"paramgen/internal/source"
)

func TestBuildCSV(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("params.csv", []byte(""+
		"id,name,type,default,tags\n"+
		"# reset commands\n"+
		"-1,SBSYS_reset_cmd,uint8_t,0,cmd|reset\n"+
		"7, adb_deb , uint16_t ,\n"+
		",\n")))
	bag := diag.NewBag(16)

	table := BuildCSV(file, diag.BagReporter{Bag: bag}, Options{AutoIncrementStart: NoAutoIncrement})

	require.Equal(t, 2, table.Len())
	reset := table.Params[0]
	assert.Equal(t, "SBSYS_reset_cmd", reset.Name)
	assert.Equal(t, "SBSYS_reset_cmd_param_id", reset.EnumName())
	assert.Equal(t, "uint8_t", reset.DataType)
	assert.Equal(t, 0, reset.ID)
	assert.True(t, reset.HasTag("reset"))

	deb := table.Params[1]
	assert.Equal(t, "adb_deb", deb.Name)
	assert.Equal(t, 7, deb.ID)
	assert.False(t, deb.HasDefault)

	assert.Equal(t, 1, bag.CountCode(diag.ParMissingDefault))
	assert.Equal(t, 1, bag.CountCode(diag.ParNoIdentifier))

	start, _ := fs.Resolve(bag.Items()[0].Primary)
	assert.Equal(t, uint32(4), start.Line)
}
