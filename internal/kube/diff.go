// Package kube provides Kubernetes-specific utilities and helpers.
package kube

import (
	"encoding/json"
	"fmt"

	jsonpatch "gomodules.xyz/jsonpatch/v2"
)

// NeedsUpdate reports whether an observed object must be rewritten to match
// the candidate built for it.
//
// The candidate is constructed from a partial view of the observed object, so
// a plain deep-equal would rewrite on every pass whenever the API server
// holds fields the candidate does not model. Instead the candidate is diffed
// against the observed object as JSON: "add" operations mean the observed
// object merely carries extra fields and are ignored; any other operation
// means a managed field changed or was dropped, and the object must be
// written.
func NeedsUpdate(candidate, observed interface{}) (bool, []jsonpatch.Operation, error) {
	candidateJSON, err := json.Marshal(candidate)
	if err != nil {
		return false, nil, fmt.Errorf("marshaling candidate: %w", err)
	}
	observedJSON, err := json.Marshal(observed)
	if err != nil {
		return false, nil, fmt.Errorf("marshaling observed object: %w", err)
	}

	patch, err := jsonpatch.CreatePatch(candidateJSON, observedJSON)
	if err != nil {
		return false, nil, fmt.Errorf("diffing candidate against observed object: %w", err)
	}

	for _, op := range patch {
		if op.Operation != "add" {
			return true, patch, nil
		}
	}
	return false, nil, nil
}

// FormatPatch renders a patch for log output.
func FormatPatch(patch []jsonpatch.Operation) string {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Sprintf("%v", patch)
	}
	return string(raw)
}
