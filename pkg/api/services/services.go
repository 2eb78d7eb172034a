package services

import (
	"github.com/hollandale/creekrun/pkg/api/services/guard"
	"github.com/hollandale/creekrun/pkg/api/services/invocations"
	"github.com/hollandale/creekrun/pkg/artifact"
	"github.com/hollandale/creekrun/pkg/store"
)

type Services struct {
	Guard       *guard.Service
	Invocations *invocations.Service
	Readings    *store.Readings
	S3          artifact.Store
}

func EmptyServices() *Services {
	return &Services{}
}
