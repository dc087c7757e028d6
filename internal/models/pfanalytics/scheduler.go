package pfanalytics

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler relance chaque nuit la réconciliation de la veille
type Scheduler struct {
	cron *cron.Cron
}

// StartScheduler planifie Reconcile selon une expression cron à 5 champs, en UTC
func StartScheduler(s *Service, expr string) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		day := Day(s.now().UTC().AddDate(0, 0, -1))
		row, err := s.Reconcile(ctx, day)
		if err != nil {
			log.Error().Err(err).Str("date", day).Msg("réconciliation échouée")
			return
		}
		if row != nil {
			log.Info().
				Str("date", day).
				Int64("total_views", row.TotalViews).
				Int64("unique_visitors", row.UniqueVisitors).
				Int64("messages_received", row.MessagesReceived).
				Msg("réconciliation terminée")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return &Scheduler{cron: c}, nil
}

// Stop attend la fin d'une réconciliation en cours
func (sc *Scheduler) Stop() {
	if sc == nil {
		return
	}
	<-sc.cron.Stop().Done()
}

// Next retourne la prochaine exécution, zéro pour un planificateur nil
func (sc *Scheduler) Next() time.Time {
	if sc == nil {
		return time.Time{}
	}
	entries := sc.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
