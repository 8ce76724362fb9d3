package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"17:30", 1050, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.minutes, got, "input %q", tc.in)
	}
}

func TestScheduleConfigValidate(t *testing.T) {
	valid := ScheduleConfig{
		SendDays:      []string{"Monday", "friday"},
		SendTimeStart: "09:00",
		SendTimeEnd:   "17:00",
	}
	assert.NoError(t, valid.Validate())

	noDays := valid
	noDays.SendDays = nil
	assert.Error(t, noDays.Validate())

	badDay := valid
	badDay.SendDays = []string{"Funday"}
	assert.Error(t, badDay.Validate())

	badStart := valid
	badStart.SendTimeStart = "9am"
	assert.Error(t, badStart.Validate())
}

func TestValidateSequence(t *testing.T) {
	assert.NoError(t, ValidateSequence([]SequenceStep{
		{Step: 1, DelayDays: 0},
		{Step: 2, DelayDays: 3},
	}))

	assert.Error(t, ValidateSequence([]SequenceStep{{Step: 0}}), "steps start at 1")
	assert.Error(t, ValidateSequence([]SequenceStep{{Step: 1}, {Step: 1}}), "duplicate steps")
	assert.Error(t, ValidateSequence([]SequenceStep{{Step: 2, DelayDays: -1}}), "negative delay")
}

func TestMailboxDomain(t *testing.T) {
	m := &Mailbox{Email: "sara@agency-one.com"}
	assert.Equal(t, "agency-one.com", m.Domain())

	m = &Mailbox{Email: "not-an-address"}
	assert.Equal(t, "", m.Domain())
}
