package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lena/certscope/internal/database/models"
)

func TestCronLine_NamedCadences(t *testing.T) {
	tests := []struct {
		frequency models.ScanFrequency
		want      string
	}{
		{models.FrequencyHourly, "0 * * * *"},
		{models.FrequencyDaily, "0 0 * * *"},
		{models.FrequencyWeekly, "0 0 * * 0"},
		{models.FrequencyMonthly, "0 0 1 * *"},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			line, err := CronLine(&models.ScanDefinition{Frequency: tt.frequency})
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestCronLine_CustomExpression(t *testing.T) {
	scan := &models.ScanDefinition{
		Frequency: models.FrequencyCustom,
		CronExpr:  "*/15 * * * *",
	}

	line, err := CronLine(scan)
	require.NoError(t, err)
	assert.Equal(t, "*/15 * * * *", line)
}

func TestCronLine_CustomRequiresExpression(t *testing.T) {
	scan := &models.ScanDefinition{Frequency: models.FrequencyCustom}

	_, err := CronLine(scan)
	var schedErr *InvalidScheduleError
	require.ErrorAs(t, err, &schedErr)
}

func TestCronLine_CustomRejectsGarbage(t *testing.T) {
	scan := &models.ScanDefinition{
		Frequency: models.FrequencyCustom,
		CronExpr:  "every five minutes",
	}

	_, err := CronLine(scan)
	var schedErr *InvalidScheduleError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, "every five minutes", schedErr.Expr)
}

func TestCronLine_UnknownFrequency(t *testing.T) {
	scan := &models.ScanDefinition{Frequency: "fortnightly"}

	_, err := CronLine(scan)
	var schedErr *InvalidScheduleError
	require.ErrorAs(t, err, &schedErr)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(&models.ScanDefinition{Frequency: models.FrequencyDaily}))
	assert.NoError(t, ValidateSchedule(&models.ScanDefinition{
		Frequency: models.FrequencyCustom,
		CronExpr:  "30 6 * * 1",
	}))
	assert.Error(t, ValidateSchedule(&models.ScanDefinition{
		Frequency: models.FrequencyCustom,
		CronExpr:  "61 * * * *",
	}))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)

	next, err := NextRun(&models.ScanDefinition{Frequency: models.FrequencyHourly}, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), next)

	next, err = NextRun(&models.ScanDefinition{Frequency: models.FrequencyDaily}, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), next)

	_, err = NextRun(&models.ScanDefinition{Frequency: "never"}, from)
	assert.Error(t, err)
}
