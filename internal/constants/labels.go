package constants

// Common Kubernetes label and annotation keys used by the operator.
const (
	LabelAppName      = "app.kubernetes.io/name"
	LabelAppManagedBy = "app.kubernetes.io/managed-by"

	// LabelTopologyZone identifies the availability zone a node resides in.
	LabelTopologyZone = "topology.kubernetes.io/zone"

	LabelWorkerNode = "node-role.kubernetes.io/worker"
	LabelInfraNode  = "node-role.kubernetes.io/infra"

	// LabelOwningIngressController is stamped by the OpenShift ingress
	// operator on the router deployments it manages.
	LabelOwningIngressController = "ingresscontroller.operator.openshift.io/owning-ingresscontroller"

	AnnotationHardStopAfter = "ingress.operator.openshift.io/hard-stop-after"
)

// Label values selecting the operands this operator observes.
const (
	LabelValueStrimziOperator = "strimzi-cluster-operator"
	LabelValueKafka           = "kafka"

	LabelValueManagedBy = "kas-fleetshard-operator"
)

// ManagedKafkaLabelDomain is the prefix for route-selection labels stamped on
// managed kafka routes.
const ManagedKafkaLabelDomain = "managedkafka.bf2.org"

// RouteLabelKey returns the full route-selection label key for a suffix such
// as "kas-us-east-1a" or "kas-multi-zone".
func RouteLabelKey(suffix string) string {
	return ManagedKafkaLabelDomain + "/" + suffix
}

// LabelKasMultiZone selects routes served by the default multi-zone ingress
// controller.
var LabelKasMultiZone = RouteLabelKey("kas-multi-zone")

// DefaultOperandLabels returns the labels applied to every resource this
// operator creates.
func DefaultOperandLabels() map[string]string {
	return map[string]string{LabelAppManagedBy: LabelValueManagedBy}
}
