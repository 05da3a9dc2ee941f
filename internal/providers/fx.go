// Package providers bundles the outbound integrations.
package providers

import (
	"github.com/tabshare/tabshare/internal/providers/email"
	"github.com/tabshare/tabshare/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(
		email.NewFromConfig,
		pdf.NewProvider,
	),
)
