package civil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2000-06-15")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2000, Month: time.June, Day: 15}, d)
	assert.Equal(t, "2000-06-15", d.String())

	_, err = Parse("15/06/2000")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		DOB  Date  `json:"dob"`
		Next *Date `json:"next"`
	}
	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"dob":"1961-02-28","next":null}`), &w))
	assert.Equal(t, MustParse("1961-02-28"), w.DOB)
	assert.Nil(t, w.Next)

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dob":"1961-02-28","next":null}`, string(out))
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"2024-13-01"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20240101`), &d))
}

func TestZeroMarshalsNull(t *testing.T) {
	out, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestComparisonsAndAddDays(t *testing.T) {
	a := MustParse("2024-02-28")
	b := a.AddDays(1)
	assert.Equal(t, "2024-02-29", b.String())
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, "2024-03-20", a.AddDays(21).String())
}

func TestPgtypeConversions(t *testing.T) {
	var d Date
	require.NoError(t, d.ScanDate(pgtype.Date{Time: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), Valid: true}))
	assert.Equal(t, "2024-06-14", d.String())

	require.NoError(t, d.ScanDate(pgtype.Date{}))
	assert.True(t, d.IsZero())

	assert.Error(t, d.ScanDate(pgtype.Date{Valid: true, InfinityModifier: pgtype.Infinity}))

	v, err := MustParse("2024-06-14").DateValue()
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 14, v.Time.Day())

	v, err = Date{}.DateValue()
	require.NoError(t, err)
	assert.False(t, v.Valid)
}
