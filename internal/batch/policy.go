package batch

import (
	"fmt"

	"github.com/JaimeStill/microtravel/internal/accounts"
)

// Permits reports whether tier may run op. Delete is open to every tier;
// the other operations require premium.
func Permits(tier accounts.Tier, op Operation) bool {
	switch op {
	case OpDelete:
		return true
	case OpDownload, OpMove, OpArchive:
		return tier == accounts.TierPremium
	}
	return false
}

// Validate checks every precondition of req without side effects.
// maxSelection <= 0 disables the size limit.
func Validate(req Request, maxSelection int) error {
	if len(req.Refs) == 0 {
		return ErrEmptySelection
	}
	if !req.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}
	if maxSelection > 0 && len(req.Refs) > maxSelection {
		return fmt.Errorf("%w: %d > %d", ErrSelectionTooLarge, len(req.Refs), maxSelection)
	}
	if req.Operation == OpMove && req.Params.DestinationID == "" {
		return ErrMissingDestination
	}

	seen := make(map[string]struct{}, len(req.Refs))
	for i, ref := range req.Refs {
		if ref.ID == "" {
			return fmt.Errorf("%w: item %d has no id", ErrInvalidSelection, i)
		}
		if needsPath(req.Operation) && ref.StoragePath == "" {
			return fmt.Errorf("%w: %s has no storage path", ErrInvalidSelection, ref.ID)
		}
		if ref.SizeBytes < 0 {
			return fmt.Errorf("%w: %s has a negative size", ErrInvalidSelection, ref.ID)
		}
		if _, ok := seen[ref.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRef, ref.ID)
		}
		seen[ref.ID] = struct{}{}
	}

	if req.Operation.Destructive() && !req.Confirmed {
		return ErrNotConfirmed
	}
	if !Permits(req.Tier, req.Operation) {
		return fmt.Errorf("%w: %s requires premium", ErrTierDenied, req.Operation)
	}
	return nil
}

func needsPath(op Operation) bool {
	return op == OpDownload || op == OpDelete
}
