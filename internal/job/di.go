package job

import (
	"github.com/samber/do/v2"
	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/metrics"
	"github.com/siriusverse/voicebridge/internal/notifier"
	"github.com/siriusverse/voicebridge/internal/repository"
	"github.com/siriusverse/voicebridge/internal/transcriber"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		engine := do.MustInvoke[transcriber.Engine](i)
		sender := do.MustInvoke[notifier.Sender](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewManager(cfg, repo, engine, sender, m), nil
	})
}
