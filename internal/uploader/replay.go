package uploader

import (
	"context"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
)

// Redelivers replayable spill records oldest first. Stops at the first failure.
func (uploader *Uploader) replay(ctx context.Context) {
	entries, err := uploader.spill.List()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "cannot list spill records: %v\n", err)
		return
	}

	sent := 0
	for _, entry := range entries {
		if sent >= replayBurst || ctx.Err() != nil {
			return
		}
		if uploader.isQuarantined(entry.Name) {
			continue
		}

		record, err := uploader.spill.Read(entry.Name)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "skipping unreadable spill record: %v\n", err)
			uploader.quarantine(entry.Name)
			continue
		}
		if !record.Replayable {
			uploader.quarantine(entry.Name)
			continue
		}

		payload, err := record.Payload()
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "skipping damaged spill record %s: %v\n", entry.Name, err)
			uploader.quarantine(entry.Name)
			continue
		}

		err = uploader.callSink(ctx, payload)
		if err != nil {
			if classify(err) == classRejected {
				uploader.quarantine(entry.Name)
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
					"spilled batch %s rejected on replay, leaving it in place: %v\n", record.BatchID, err)
				continue
			}
			logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
				"replay of spilled batch %s failed, will try again later: %v\n", record.BatchID, err)
			return
		}

		sent++
		uploader.metrics.Replayed.Add(1)
		err = uploader.spill.Delete(entry.Name)
		if err != nil {
			uploader.quarantine(entry.Name)
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "replayed %s but could not remove it: %v\n", entry.Name, err)
			continue
		}
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"replayed spilled batch %s (%d events)\n", record.BatchID, record.Events)
	}
}

func (uploader *Uploader) quarantine(name string) {
	uploader.quarantineMu.Lock()
	uploader.quarantined[name] = struct{}{}
	uploader.quarantineMu.Unlock()
}

func (uploader *Uploader) isQuarantined(name string) (ok bool) {
	uploader.quarantineMu.Lock()
	_, ok = uploader.quarantined[name]
	uploader.quarantineMu.Unlock()
	return
}
