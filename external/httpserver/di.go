package httpserver

import (
	"github.com/samber/do/v2"
	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/job"
	"github.com/siriusverse/voicebridge/internal/metrics"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*job.Manager](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return New(cfg, manager, m), nil
	})
}
