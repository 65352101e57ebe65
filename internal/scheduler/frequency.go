package scheduler

import (
	"errors"
	"time"

	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/pkg/util"
)

// cronLines maps the named cadences onto fixed five-field expressions.
var cronLines = map[models.ScanFrequency]string{
	models.FrequencyHourly:  "0 * * * *",
	models.FrequencyDaily:   "0 0 * * *",
	models.FrequencyWeekly:  "0 0 * * 0",
	models.FrequencyMonthly: "0 0 1 * *",
}

// CronLine resolves a scan definition's cadence to the cron expression the
// scheduler arms. Named cadences ignore CronExpr; custom carries its own.
func CronLine(scan *models.ScanDefinition) (string, error) {
	if line, ok := cronLines[scan.Frequency]; ok {
		return line, nil
	}

	if scan.Frequency == models.FrequencyCustom {
		if scan.CronExpr == "" {
			return "", &InvalidScheduleError{Err: errors.New("custom frequency requires a cron expression")}
		}
		if err := util.ValidateCronExpr(scan.CronExpr); err != nil {
			return "", &InvalidScheduleError{Expr: scan.CronExpr, Err: err}
		}
		return scan.CronExpr, nil
	}

	return "", &InvalidScheduleError{Expr: string(scan.Frequency), Err: errors.New("unknown frequency")}
}

// ValidateSchedule is the save-time check behind every create and update.
func ValidateSchedule(scan *models.ScanDefinition) error {
	_, err := CronLine(scan)
	return err
}

// NextRun computes the first firing strictly after from.
func NextRun(scan *models.ScanDefinition, from time.Time) (time.Time, error) {
	line, err := CronLine(scan)
	if err != nil {
		return time.Time{}, err
	}
	next, err := util.NextCronTime(line, from)
	if err != nil {
		return time.Time{}, &InvalidScheduleError{Expr: line, Err: err}
	}
	return next, nil
}
