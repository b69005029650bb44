package api

import (
	"github.com/JaimeStill/microtravel/internal/accounts"
	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/internal/collections"
	"github.com/JaimeStill/microtravel/internal/config"
	"github.com/JaimeStill/microtravel/internal/images"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Accounts    accounts.System
	Collections collections.System
	Images      images.System
	Batches     batch.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) *Domain {
	accountsSystem := accounts.New(
		runtime.Database.Connection(),
		runtime.Logger,
	)

	collectionsSystem := collections.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	imagesSystem := images.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	batchSystem := batch.New(
		imagesSystem,
		accountsSystem,
		runtime.Lifecycle,
		cfg.Batch,
		runtime.Logger,
	)

	return &Domain{
		Accounts:    accountsSystem,
		Collections: collectionsSystem,
		Images:      imagesSystem,
		Batches:     batchSystem,
	}
}
