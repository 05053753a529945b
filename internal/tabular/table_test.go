package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "ID_Card, First_Name ,Role\n1234567890123,Somchai,Suspect\n9876543210987,Pranee,Victim\n"

	table, err := Parse("persons.csv", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "persons.csv", table.FileName)
	assert.Equal(t, []string{"id_card", "first_name", "role"}, table.Headers)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "Somchai", table.Records[0].Get("first_name"))
	assert.Equal(t, "Victim", table.Records[1].Get("role"))
}

func TestParseShortAndLongRows(t *testing.T) {
	input := "a,b,c\n1,2\n1,2,3,4\n"

	table, err := Parse("ragged.csv", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Records, 2)

	// Short rows read as blank in the missing columns.
	assert.Equal(t, "2", table.Records[0].Get("b"))
	assert.False(t, table.Records[0].Has("c"))

	// Long rows are truncated to the header width.
	assert.Equal(t, "3", table.Records[1].Get("c"))
	assert.Len(t, table.Records[1], 3)
}

func TestParseEmptyFile(t *testing.T) {
	_, err := Parse("empty.csv", strings.NewReader(""))
	assert.Error(t, err)
}

func TestRecordGetTrims(t *testing.T) {
	record := Record{"amount": " 50000 "}
	assert.Equal(t, "50000", record.Get("amount"))
	assert.True(t, record.Has("amount"))
	assert.False(t, record.Has("missing"))
}

func TestHasColumn(t *testing.T) {
	table := &Table{Headers: []string{"from_wallet", "to_wallet"}}
	assert.True(t, table.HasColumn("from_wallet"))
	assert.False(t, table.HasColumn("amount"))
}
