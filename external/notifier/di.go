package notifier

import (
	"github.com/samber/do/v2"
	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/notifier"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (notifier.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(c.ResultWebhookURL), nil
	})
}
