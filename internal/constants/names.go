package constants

// Namespaces owned by the OpenShift ingress operator.
const (
	IngressOperatorNamespace = "openshift-ingress-operator"
	IngressRouterNamespace   = "openshift-ingress"
)

// Ingress controller naming.
const (
	// IngressControllerPrefix prefixes every ingress controller this
	// operator manages, zone-pinned ("kas-<zone>") or not ("kas").
	IngressControllerPrefix = "kas"

	// DefaultIngressControllerName is the cluster-level ingress controller
	// owned by OpenShift itself; its status carries the cluster app domain.
	DefaultIngressControllerName = "default"

	// RouterSubdomain is prefixed to the domain reported on an
	// IngressController status. CNAME records must point at a sub-domain of
	// the controller domain, so route projection prepends this.
	RouterSubdomain = "ingresscontroller."
)

// ZoneIngressControllerName returns the name of the ingress controller pinned
// to the given availability zone.
func ZoneIngressControllerName(zone string) string {
	return IngressControllerPrefix + "-" + zone
}

// ExternalListenerName is the strimzi listener carrying external client
// traffic; its configuration holds the per-broker connection limit.
const ExternalListenerName = "external"

// Static quota callback keys on the Kafka broker config.
const (
	ProduceQuotaConfigKey = "client.quota.callback.static.produce"
	FetchQuotaConfigKey   = "client.quota.callback.static.fetch"
)
