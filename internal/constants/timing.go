package constants

import "time"

// Reconcile cadence and debounce intervals.
const (
	// ReconcileInterval is the periodic reconcile cadence. Ticks arriving
	// while a pass runs coalesce into a single follow-up pass.
	ReconcileInterval = 3 * time.Minute

	// RouterPatchDebounce delays router deployment patching so clustered
	// informer events collapse into a single edit.
	RouterPatchDebounce = 2 * time.Second
)
