package ingress

import (
	"encoding/json"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"

	operatorv1 "github.com/openshift/api/operator/v1"

	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
)

// minReplicaReduction is the hysteresis margin: a computed drop of at most
// this many replicas keeps the existing count, while a larger drop applies in
// full. Excess replicas are not reclaimed until demand falls by more than this.
const minReplicaReduction = 1

// reloadIntervalKey is the single key this operator manages inside the
// unsupported config overrides bag.
const reloadIntervalKey = "reloadInterval"

// buildParams is the input to desiredIngressController.
type buildParams struct {
	name          string
	domain        string
	existing      *operatorv1.IngressController
	replicas      int
	routeSelector *metav1.LabelSelector
	topologyValue string

	workerNodes           int
	hardStopAfter         string
	reloadIntervalSeconds int
}

// desiredIngressController constructs the candidate ingress controller. The
// candidate starts from a deep copy of the existing object so fields owned by
// other actors survive the write; only the fields this operator manages are
// overwritten.
func desiredIngressController(p buildParams) *operatorv1.IngressController {
	ic := &operatorv1.IngressController{}
	if p.existing != nil {
		ic = p.existing.DeepCopy()
	}

	replicas := p.replicas
	if p.existing != nil && p.existing.Spec.Replicas != nil {
		existingReplicas := int(*p.existing.Spec.Replicas)
		// retain replicas as long as we're above the min reduction
		if existingReplicas-replicas <= minReplicaReduction {
			replicas = max(existingReplicas, replicas)
		}
	}

	// enforce a minimum of two replicas on clusters that can accommodate it
	if replicas == 1 && p.workerNodes > 3 {
		replicas = 2
	}

	ic.Name = p.name
	ic.Namespace = constants.IngressOperatorNamespace
	ic.Labels = constants.DefaultOperandLabels()

	ic.Spec.Domain = p.domain
	ic.Spec.RouteSelector = p.routeSelector
	ic.Spec.Replicas = ptr.To(int32(replicas))
	ic.Spec.EndpointPublishingStrategy = &operatorv1.EndpointPublishingStrategy{
		Type: operatorv1.LoadBalancerServiceStrategyType,
		LoadBalancer: &operatorv1.LoadBalancerStrategy{
			Scope: operatorv1.ExternalLoadBalancer,
			ProviderParameters: &operatorv1.ProviderLoadBalancerParameters{
				Type: operatorv1.AWSLoadBalancerProvider,
				AWS: &operatorv1.AWSLoadBalancerParameters{
					Type: operatorv1.AWSNetworkLoadBalancer,
				},
			},
		},
	}

	if p.topologyValue != "" {
		ic.Spec.NodePlacement = &operatorv1.NodePlacement{
			NodeSelector: &metav1.LabelSelector{
				MatchLabels: map[string]string{
					constants.LabelTopologyZone: p.topologyValue,
					constants.LabelWorkerNode:   "",
				},
			},
		}
	}

	if p.hardStopAfter != "" {
		if ic.Annotations == nil {
			ic.Annotations = map[string]string{}
		}
		ic.Annotations[constants.AnnotationHardStopAfter] = p.hardStopAfter
	} else {
		delete(ic.Annotations, constants.AnnotationHardStopAfter)
	}

	ic.Spec.UnsupportedConfigOverrides = buildConfigOverrides(ic.Spec.UnsupportedConfigOverrides, p.reloadIntervalSeconds)

	return ic
}

// buildConfigOverrides preserves whatever lives in the schemaless overrides
// bag and manages only the reload interval key.
func buildConfigOverrides(current runtime.RawExtension, reloadIntervalSeconds int) runtime.RawExtension {
	overrides := map[string]interface{}{}
	if len(current.Raw) > 0 {
		// an unreadable bag is treated as empty rather than failing the build
		_ = json.Unmarshal(current.Raw, &overrides)
	}

	if reloadIntervalSeconds > 0 {
		overrides[reloadIntervalKey] = reloadIntervalSeconds
	} else {
		delete(overrides, reloadIntervalKey)
	}

	if len(overrides) == 0 {
		return runtime.RawExtension{}
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return runtime.RawExtension{}
	}
	return runtime.RawExtension{Raw: raw}
}
