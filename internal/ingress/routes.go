package ingress

import (
	"regexp"
	"sort"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	routev1 "github.com/openshift/api/route/v1"

	kafkav1beta2 "github.com/managed-kafka/kas-ingress-operator/api/kafka/v1beta2"
	"github.com/managed-kafka/kas-ingress-operator/api/v1alpha1"
	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
)

// brokerRoutePattern matches route names that look like a broker resource.
var brokerRoutePattern = regexp.MustCompile(`.+-kafka-\d+$`)

// GetManagedKafkaRoutesFor projects the externally resolvable route endpoints
// for a managed kafka: the bootstrap and admin-server endpoints on the
// multi-zone router, plus one endpoint per broker route on the router of the
// zone its broker is scheduled in. A broker whose zone cannot be resolved is
// still projected, with an empty router domain.
func (m *Manager) GetManagedKafkaRoutesFor(mk *v1alpha1.ManagedKafka) []v1alpha1.ManagedKafkaRoute {
	multiZoneRouter := m.ingressControllerDomain(constants.IngressControllerPrefix)
	bootstrapHost := mk.Spec.Endpoint.BootstrapServerHost

	routes := []v1alpha1.ManagedKafkaRoute{
		{Name: "bootstrap", Prefix: "", Router: multiZoneRouter},
		{Name: "admin-server", Prefix: "admin-server", Router: multiZoneRouter},
	}

	for _, route := range m.routesFor(mk) {
		if !brokerRoutePattern.MatchString(route.Name) {
			continue
		}
		zone := m.zoneForBrokerRoute(route)
		router := m.ingressControllerDomain(constants.ZoneIngressControllerName(zone))
		prefix := strings.TrimSuffix(route.Spec.Host, "-"+bootstrapHost)

		routes = append(routes, v1alpha1.ManagedKafkaRoute{Name: prefix, Prefix: prefix, Router: router})
	}

	sort.Slice(routes, func(i, j int) bool { return routes[i].Name < routes[j].Name })
	return routes
}

// ingressControllerDomain resolves the router domain served by the named
// ingress controller, or an empty string when the controller is absent.
func (m *Manager) ingressControllerDomain(name string) string {
	ic, ok := m.informers.IngressControllers().GetByKey(constants.IngressOperatorNamespace, name)
	if !ok {
		return ""
	}
	domain := ic.Status.Domain
	if domain == "" {
		domain = ic.Spec.Domain
	}
	return constants.RouterSubdomain + domain
}

// routesFor returns the routes in the managed kafka's namespace owned by its
// kafka cluster or by the managed kafka itself.
func (m *Manager) routesFor(mk *v1alpha1.ManagedKafka) []*routev1.Route {
	all := m.workloads.GetRoutesInNamespace(mk.Namespace)
	out := make([]*routev1.Route, 0, len(all))
	for _, route := range all {
		if isOwnedBy(route, kafkav1beta2.KafkaKind, mk.Name, mk.Namespace) ||
			isOwnedBy(route, v1alpha1.ManagedKafkaKind, mk.Name, mk.Namespace) {
			out = append(out, route)
		}
	}
	return out
}

// zoneForBrokerRoute resolves the availability zone serving a broker route:
// the route's backend service selects a broker pod, and the pod's node
// carries the zone label. Any gap in that chain yields an empty zone.
func (m *Manager) zoneForBrokerRoute(route *routev1.Route) string {
	svc := m.workloads.GetLocalService(route.Namespace, route.Spec.To.Name)
	if svc == nil {
		return ""
	}

	selector := svc.Spec.Selector
	for _, pod := range m.informers.BrokerPods().List() {
		if pod.Namespace != route.Namespace || !labelsContain(pod.Labels, selector) {
			continue
		}
		node, ok := m.informers.Nodes().GetByKey("", pod.Spec.NodeName)
		if !ok {
			return ""
		}
		return node.Labels[constants.LabelTopologyZone]
	}
	return ""
}

func isOwnedBy(obj metav1.Object, ownerKind, ownerName, ownerNamespace string) bool {
	if obj.GetNamespace() != ownerNamespace {
		return false
	}
	for _, ref := range obj.GetOwnerReferences() {
		if ref.Kind == ownerKind && ref.Name == ownerName {
			return true
		}
	}
	return false
}

// labelsContain reports whether labels is a superset of selector. An empty
// selector matches nothing.
func labelsContain(labels, selector map[string]string) bool {
	if len(selector) == 0 {
		return false
	}
	for key, value := range selector {
		if labels[key] != value {
			return false
		}
	}
	return true
}
