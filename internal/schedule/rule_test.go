package schedule

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		schedule     string
		interval     Interval
		want         Rule
		wantFallback string
	}{
		{
			name:     "daily",
			schedule: "daily",
			want:     Rule{Kind: KindDaily},
		},
		{
			name:     "weekly ignores interval",
			schedule: "weekly",
			interval: Interval{Number: 3, Unit: "day"},
			want:     Rule{Kind: KindWeekly},
		},
		{
			name:     "monthly is case insensitive",
			schedule: "Monthly",
			want:     Rule{Kind: KindMonthly},
		},
		{
			name:     "custom object",
			schedule: "custom",
			interval: Interval{Number: 3, Unit: "day"},
			want:     Rule{Kind: KindCustom, Number: 3, Unit: UnitDay},
		},
		{
			name:     "custom object with plural unit",
			schedule: "custom",
			interval: Interval{Number: 2, Unit: "weeks"},
			want:     Rule{Kind: KindCustom, Number: 2, Unit: UnitWeek},
		},
		{
			name:     "custom object with fractional number",
			schedule: "custom",
			interval: Interval{Number: 2.7, Unit: "month"},
			want:     Rule{Kind: KindCustom, Number: 2, Unit: UnitMonth},
		},
		{
			name:         "custom object with zero number",
			schedule:     "custom",
			interval:     Interval{Number: 0, Unit: "week"},
			want:         Rule{Kind: KindCustom, Number: 1, Unit: UnitWeek},
			wantFallback: FallbackBadNumber,
		},
		{
			name:         "custom object with negative number",
			schedule:     "custom",
			interval:     Interval{Number: -4, Unit: "day"},
			want:         Rule{Kind: KindCustom, Number: 1, Unit: UnitDay},
			wantFallback: FallbackBadNumber,
		},
		{
			name:         "custom object with unknown unit",
			schedule:     "custom",
			interval:     Interval{Number: 5, Unit: "fortnight"},
			want:         Rule{Kind: KindCustom, Number: 5, Unit: UnitDay},
			wantFallback: FallbackBadUnit,
		},
		{
			name:     "legacy string",
			schedule: "custom",
			interval: Interval{Text: "every 3 days"},
			want:     Rule{Kind: KindCustom, Number: 3, Unit: UnitDay},
		},
		{
			name:     "legacy string singular and upper case",
			schedule: "custom",
			interval: Interval{Text: "Every 1 Week"},
			want:     Rule{Kind: KindCustom, Number: 1, Unit: UnitWeek},
		},
		{
			name:     "legacy string months",
			schedule: "custom",
			interval: Interval{Text: "every 6 months"},
			want:     Rule{Kind: KindCustom, Number: 6, Unit: UnitMonth},
		},
		{
			name:         "legacy string unreadable",
			schedule:     "custom",
			interval:     Interval{Text: "twice a fortnight"},
			want:         Rule{Kind: KindCustom, Number: 1, Unit: UnitDay},
			wantFallback: FallbackUnparsedText,
		},
		{
			name:         "legacy string with zero",
			schedule:     "custom",
			interval:     Interval{Text: "every 0 days"},
			want:         Rule{Kind: KindCustom, Number: 1, Unit: UnitDay},
			wantFallback: FallbackBadNumber,
		},
		{
			name:         "custom without interval",
			schedule:     "custom",
			want:         Rule{Kind: KindCustom, Number: 1, Unit: UnitDay},
			wantFallback: FallbackMissingInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.schedule, tt.interval)
			require.NoError(t, err)

			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Number, got.Number)
			assert.Equal(t, tt.want.Unit, got.Unit)
			assert.Equal(t, tt.wantFallback != "", got.Fallback)
			assert.Equal(t, tt.wantFallback, got.FallbackReason)
		})
	}
}

func TestNormalize_InvalidKind(t *testing.T) {
	for _, s := range []string{"", "hourly", "every day", "yearly"} {
		_, err := Normalize(s, Interval{})
		assert.True(t, errors.Is(err, ErrInvalidScheduleKind), "schedule %q", s)
	}
}

func TestInterval_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Interval
	}{
		{name: "null", input: `null`, want: Interval{}},
		{name: "object", input: `{"number": 3, "unit": "week"}`, want: Interval{Number: 3, Unit: "week"}},
		{name: "object with string number", input: `{"number": "4", "unit": "day"}`, want: Interval{Number: 4, Unit: "day"}},
		{name: "object with junk number", input: `{"number": true, "unit": "day"}`, want: Interval{Unit: "day"}},
		{name: "legacy string", input: `"every 2 months"`, want: Interval{Text: "every 2 months"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Interval
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var iv Interval
	assert.Error(t, json.Unmarshal([]byte(`[1, "day"]`), &iv))
}

func TestInterval_StorageRoundTrip(t *testing.T) {
	for _, iv := range []Interval{
		{Number: 3, Unit: "day"},
		{Text: "every 2 weeks"},
	} {
		v, err := iv.Value()
		require.NoError(t, err)

		var back Interval
		require.NoError(t, back.Scan(v))
		assert.Equal(t, iv, back)
	}

	v, err := Interval{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRule_String(t *testing.T) {
	assert.Equal(t, "daily", Rule{Kind: KindDaily}.String())
	assert.Equal(t, "every day", Rule{Kind: KindCustom, Number: 1, Unit: UnitDay}.String())
	assert.Equal(t, "every 3 weeks", Rule{Kind: KindCustom, Number: 3, Unit: UnitWeek}.String())
}
