package cron

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/billmanager/internal/alerting"
	"github.com/bher20/billmanager/internal/billing"
	"github.com/bher20/billmanager/internal/config"
	"github.com/bher20/billmanager/internal/metrics"
	"github.com/bher20/billmanager/internal/notification"
	"github.com/bher20/billmanager/internal/storage"
)

const (
	jobName = "overdue_sweep"
	lockKey = int64(42)
	// settingKey allows the sweep interval to be retuned at runtime
	// through the settings table.
	settingKey = "overdue_sweep_interval_seconds"
)

// Run starts the overdue sweep worker: it periodically scans bill
// records that have sat unpaid past the grace period, accrues a
// delayed-payment surcharge on each, and sends reminder emails where a
// customer address is on record. A PostgreSQL advisory lock ensures
// that in a multi-instance deployment only one worker executes the
// sweep.
func Run(ctx context.Context, cfg config.Config) error {
	if cfg.Driver != "postgrespool" {
		return fmt.Errorf("sweep worker requires BILLMANAGER_DB_DRIVER=postgrespool (got %q)", cfg.Driver)
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	pg, ok := st.(*storage.PostgresPoolStorage)
	if !ok {
		return fmt.Errorf("storage driver %q is not PostgresPoolStorage", cfg.Driver)
	}

	svc := billing.NewServiceWithStorage(st)
	notifier := notification.NewService(st)
	alerter := alerting.NewAlerter(alerting.DefaultAlertConfig())

	intervalSetting := cfg.SweepInterval

	// Check DB for override
	if val, err := st.GetSetting(ctx, settingKey); err == nil && val != "" {
		intervalSetting = val
	}

	// Control loop ticker (checks config and run time)
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	// Interval may be integer seconds or a cron expression.
	getNextRun := func(setting string, lastRun time.Time) time.Time {
		if v, err := strconv.Atoi(setting); err == nil && v > 0 {
			return lastRun.Add(time.Duration(v) * time.Second)
		}
		if sched, err := cron.ParseStandard(setting); err == nil {
			return sched.Next(lastRun)
		}
		// Fallback to daily
		return lastRun.Add(24 * time.Hour)
	}

	// If starting fresh, run immediately, then schedule next
	nextRun := time.Now()

	log.Printf("sweep worker starting, initial setting=%q grace=%dd", intervalSetting, cfg.SweepGraceDays)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// 1. Check for config update
			if val, err := st.GetSetting(ctx, settingKey); err == nil && val != "" {
				if val != intervalSetting {
					log.Printf("sweep: interval updated from %q to %q", intervalSetting, val)
					intervalSetting = val
					nextRun = getNextRun(intervalSetting, time.Now())
				}
			}

			// 2. Check if it's time to run
			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()

			gotLock, err := pg.AcquireAdvisoryLock(ctx, lockKey)
			if err != nil {
				log.Printf("sweep: acquire advisory lock failed: %v", err)
				metrics.UpdateJobMetrics(jobName, started, err)
				nextRun = getNextRun(intervalSetting, time.Now())
				continue
			}
			if !gotLock {
				log.Printf("sweep: advisory lock held by another worker, skipping run")
				nextRun = getNextRun(intervalSetting, time.Now())
				continue
			}

			var runErr error
			var total, failed int
			var failures []alerting.RecordFailure
			func() {
				defer func() {
					if _, err := pg.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
						log.Printf("sweep: release advisory lock failed: %v", err)
					}
				}()

				cutoff := time.Now().AddDate(0, 0, -cfg.SweepGraceDays)
				overdue, err := st.ListOverdueBillRecords(ctx, cutoff)
				if err != nil {
					runErr = fmt.Errorf("list overdue records: %w", err)
					return
				}
				total = len(overdue)

				for _, rec := range overdue {
					accrual, err := svc.ApplyLateSurcharge(ctx, rec.ID)
					if err != nil {
						log.Printf("sweep: record %s surcharge failed: %v", rec.ID, err)
						failed++
						failures = append(failures, alerting.RecordFailure{RecordID: rec.ID, Error: err.Error()})
						if runErr == nil {
							runErr = err
						}
						continue
					}
					log.Printf("sweep: record %s accrued %.2f late surcharge", rec.ID, accrual)

					if rec.CustomerEmail != "" {
						updated, err := st.GetBillRecord(ctx, rec.ID)
						if err != nil || updated == nil {
							continue
						}
						if err := notifier.SendBillReminder(ctx, rec.CustomerEmail, *updated); err != nil {
							// Reminder failures are logged but do not fail the sweep.
							log.Printf("sweep: reminder for record %s failed: %v", rec.ID, err)
						}
					}
				}
			}()

			metrics.UpdateJobMetrics(jobName, started, runErr)
			dur := time.Since(started)
			errMsg := ""
			success := runErr == nil
			if runErr != nil {
				errMsg = runErr.Error()
			}
			if err := pg.UpdateScheduledJob(ctx, jobName, started, dur, success, errMsg); err != nil {
				log.Printf("sweep: update scheduled_jobs failed: %v", err)
			}

			if failed > 0 {
				alert := alerting.SweepAlert{
					JobName:       jobName,
					TotalCount:    total,
					SuccessCount:  total - failed,
					FailedCount:   failed,
					Duration:      dur,
					FailedDetails: failures,
					Timestamp:     time.Now(),
				}
				if err := alerter.SendSweepAlert(ctx, alert); err != nil {
					log.Printf("sweep: alert failed: %v", err)
				}
			}

			if runErr != nil {
				log.Printf("sweep: job completed with error: %v (duration=%s)", runErr, dur)
			} else {
				log.Printf("sweep: job completed successfully, %d records processed (duration=%s)", total, dur)
			}

			nextRun = getNextRun(intervalSetting, time.Now())
		}
	}
}
