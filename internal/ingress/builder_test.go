package ingress

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"

	operatorv1 "github.com/openshift/api/operator/v1"

	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
)

func existingController(name string, replicas int32) *operatorv1.IngressController {
	return &operatorv1.IngressController{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: constants.IngressOperatorNamespace,
		},
		Spec: operatorv1.IngressControllerSpec{
			Replicas: ptr.To(replicas),
		},
	}
}

func TestDesiredIngressControllerFresh(t *testing.T) {
	selector := &metav1.LabelSelector{MatchLabels: map[string]string{"managedkafka.bf2.org/kas-us-east-1a": "true"}}

	ic := desiredIngressController(buildParams{
		name:          "kas-us-east-1a",
		domain:        "kas-us-east-1a.cluster.example.com",
		replicas:      3,
		routeSelector: selector,
		topologyValue: "us-east-1a",
		workerNodes:   9,
		hardStopAfter: "30m",
	})

	assert.Equal(t, "kas-us-east-1a", ic.Name)
	assert.Equal(t, constants.IngressOperatorNamespace, ic.Namespace)
	assert.Equal(t, constants.DefaultOperandLabels(), ic.Labels)
	assert.Equal(t, "kas-us-east-1a.cluster.example.com", ic.Spec.Domain)
	assert.Equal(t, selector, ic.Spec.RouteSelector)
	assert.Equal(t, int32(3), *ic.Spec.Replicas)
	assert.Equal(t, "30m", ic.Annotations[constants.AnnotationHardStopAfter])

	strategy := ic.Spec.EndpointPublishingStrategy
	require.NotNil(t, strategy)
	assert.Equal(t, operatorv1.LoadBalancerServiceStrategyType, strategy.Type)
	assert.Equal(t, operatorv1.ExternalLoadBalancer, strategy.LoadBalancer.Scope)
	assert.Equal(t, operatorv1.AWSNetworkLoadBalancer, strategy.LoadBalancer.ProviderParameters.AWS.Type)

	require.NotNil(t, ic.Spec.NodePlacement)
	assert.Equal(t, map[string]string{
		constants.LabelTopologyZone: "us-east-1a",
		constants.LabelWorkerNode:   "",
	}, ic.Spec.NodePlacement.NodeSelector.MatchLabels)
}

func TestDesiredIngressControllerNoNodePlacementForDefault(t *testing.T) {
	ic := desiredIngressController(buildParams{
		name:     "kas",
		domain:   "kas.cluster.example.com",
		replicas: 2,
	})
	assert.Nil(t, ic.Spec.NodePlacement)
	assert.NotContains(t, ic.Annotations, constants.AnnotationHardStopAfter)
}

func TestDesiredIngressControllerHysteresis(t *testing.T) {
	tests := []struct {
		name     string
		existing int32
		computed int
		workers  int
		want     int32
	}{
		{name: "drop of one is held", existing: 5, computed: 4, workers: 9, want: 5},
		{name: "drop of two is released", existing: 5, computed: 3, workers: 9, want: 3},
		{name: "growth passes through", existing: 2, computed: 4, workers: 9, want: 4},
		{name: "steady state", existing: 3, computed: 3, workers: 9, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic := desiredIngressController(buildParams{
				name:        "kas-a",
				domain:      "kas-a.cluster.example.com",
				existing:    existingController("kas-a", tt.existing),
				replicas:    tt.computed,
				workerNodes: tt.workers,
			})
			assert.Equal(t, tt.want, *ic.Spec.Replicas)
		})
	}
}

func TestDesiredIngressControllerHAFloor(t *testing.T) {
	// more than three workers raises a single replica to two
	ic := desiredIngressController(buildParams{
		name: "kas-a", domain: "d", replicas: 1, workerNodes: 4,
	})
	assert.Equal(t, int32(2), *ic.Spec.Replicas)

	// small clusters keep the single replica
	ic = desiredIngressController(buildParams{
		name: "kas-a", domain: "d", replicas: 1, workerNodes: 3,
	})
	assert.Equal(t, int32(1), *ic.Spec.Replicas)
}

func TestDesiredIngressControllerPreservesForeignFields(t *testing.T) {
	existing := existingController("kas", 2)
	existing.Spec.NamespaceSelector = &metav1.LabelSelector{MatchLabels: map[string]string{"team": "mk"}}
	existing.Spec.UnsupportedConfigOverrides = runtime.RawExtension{Raw: []byte(`{"dnsRecordsPolicy":"Unmanaged"}`)}

	ic := desiredIngressController(buildParams{
		name:                  "kas",
		domain:                "kas.cluster.example.com",
		existing:              existing,
		replicas:              2,
		reloadIntervalSeconds: 5,
	})

	assert.Equal(t, existing.Spec.NamespaceSelector, ic.Spec.NamespaceSelector)

	var overrides map[string]interface{}
	require.NoError(t, json.Unmarshal(ic.Spec.UnsupportedConfigOverrides.Raw, &overrides))
	assert.Equal(t, "Unmanaged", overrides["dnsRecordsPolicy"])
	assert.Equal(t, float64(5), overrides[reloadIntervalKey])
}

func TestDesiredIngressControllerRemovesManagedOverrideKeyOnly(t *testing.T) {
	existing := existingController("kas", 2)
	existing.Spec.UnsupportedConfigOverrides = runtime.RawExtension{
		Raw: []byte(`{"dnsRecordsPolicy":"Unmanaged","reloadInterval":5}`),
	}

	ic := desiredIngressController(buildParams{
		name:     "kas",
		domain:   "kas.cluster.example.com",
		existing: existing,
		replicas: 2,
		// reload interval disabled: only that key is dropped
	})

	var overrides map[string]interface{}
	require.NoError(t, json.Unmarshal(ic.Spec.UnsupportedConfigOverrides.Raw, &overrides))
	assert.Equal(t, "Unmanaged", overrides["dnsRecordsPolicy"])
	assert.NotContains(t, overrides, reloadIntervalKey)
}

func TestDesiredIngressControllerRemovesStaleAnnotation(t *testing.T) {
	existing := existingController("kas", 2)
	existing.Annotations = map[string]string{constants.AnnotationHardStopAfter: "30m"}

	ic := desiredIngressController(buildParams{
		name: "kas", domain: "d", existing: existing, replicas: 2,
	})
	assert.NotContains(t, ic.Annotations, constants.AnnotationHardStopAfter)
}
