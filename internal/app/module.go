package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fstopworks/darkroom/internal/app/api/server"
	"github.com/fstopworks/darkroom/internal/app/service/billing"
	"github.com/fstopworks/darkroom/internal/app/service/catalog"
	"github.com/fstopworks/darkroom/internal/app/service/credits"
	"github.com/fstopworks/darkroom/internal/app/service/identity"
	"github.com/fstopworks/darkroom/internal/app/service/redemption"
	"github.com/fstopworks/darkroom/internal/app/service/webhookqueue"
	"github.com/fstopworks/darkroom/internal/platform/db"
	"github.com/fstopworks/darkroom/internal/platform/stripeapi"
	"github.com/fstopworks/darkroom/pkg/config"
	"github.com/fstopworks/darkroom/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	stripeapi.Module,
	identity.Module,
	credits.Module,
	redemption.Module,
	catalog.Module,
	billing.Module,
	webhookqueue.Module,
)
