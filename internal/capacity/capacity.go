// Package capacity converts kafka workload quotas, connection limits and
// cluster topology into ingress replica counts. All functions are pure; the
// reconciler owns side effects.
package capacity

import (
	"fmt"
	"math"
	"strconv"

	"k8s.io/apimachinery/pkg/api/resource"

	kafkav1beta2 "github.com/managed-kafka/kas-ingress-operator/api/kafka/v1beta2"
	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
	operrors "github.com/managed-kafka/kas-ingress-operator/internal/errors"
)

// oneMiB pads the per-replica budget to account for the bandwidth of other
// colocated pods.
const oneMiB = int64(1024 * 1024)

// Config carries the knobs the capacity model consumes.
type Config struct {
	// MaxIngressThroughput is the usable bandwidth of a single ingress
	// replica, in bytes/s.
	MaxIngressThroughput resource.Quantity
	// MaxIngressConnections is the connection capacity of a single ingress
	// replica.
	MaxIngressConnections int
	// PeakThroughputPercentage scales the demanded throughput back, on the
	// assumption that the peak need not be met.
	PeakThroughputPercentage int
	// AZReplicaCount, when set, overrides the computed per-zone count.
	AZReplicaCount *int
	// DefaultReplicaCount, when set, overrides the computed count for the
	// default multi-zone controller.
	DefaultReplicaCount *int
}

// Summary aggregates per-broker-replica byte/s samples; each kafka
// contributes one sample per broker replica.
type Summary struct {
	Sum   int64
	Max   int64
	Count int64
}

func (s *Summary) add(value, samples int64) {
	s.Sum += value * samples
	s.Count += samples
	if value > s.Max {
		s.Max = value
	}
}

// Extractor yields a quantity-valued quota from a kafka snapshot.
type Extractor func(k *kafkav1beta2.Kafka) (string, bool)

// QuotaExtractor reads a broker config value, such as the static quota
// callback produce/fetch limits.
func QuotaExtractor(key string) Extractor {
	return func(k *kafkav1beta2.Kafka) (string, bool) {
		if k.Spec == nil || k.Spec.Kafka.Config == nil {
			return "", false
		}
		raw, ok := k.Spec.Kafka.Config[key]
		if !ok {
			return "", false
		}
		switch v := raw.(type) {
		case string:
			return v, true
		case int:
			return strconv.Itoa(v), true
		case int32:
			return strconv.FormatInt(int64(v), 10), true
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		default:
			return "", false
		}
	}
}

// ProduceQuota extracts the per-broker produce quota in bytes/s.
var ProduceQuota = QuotaExtractor(constants.ProduceQuotaConfigKey)

// FetchQuota extracts the per-broker fetch quota in bytes/s.
var FetchQuota = QuotaExtractor(constants.FetchQuotaConfigKey)

// Summarize builds the byte-valued summary over the given kafkas, each
// contributing replicas samples of the extracted quantity. A kafka for which
// the extractor yields nothing falls back to defaultValue; with no default
// the summary fails as a malformed workload.
func Summarize(kafkas []*kafkav1beta2.Kafka, extract Extractor, defaultValue string) (Summary, error) {
	var summary Summary
	for _, k := range kafkas {
		value, ok := extract(k)
		if !ok {
			if defaultValue == "" {
				return Summary{}, operrors.WrapMalformedWorkload(
					fmt.Errorf("kafka %s/%s lacks a required quota", k.Namespace, k.Name))
			}
			value = defaultValue
		}
		quantity, err := resource.ParseQuantity(value)
		if err != nil {
			return Summary{}, operrors.WrapMalformedWorkload(
				fmt.Errorf("kafka %s/%s quota %q: %w", k.Namespace, k.Name, value, err))
		}
		summary.add(quantity.Value(), int64(k.Replicas()))
	}
	return summary, nil
}

// ConnectionDemand sums the external listener connection limits over all
// kafkas, weighted by broker replica count. A kafka without an external
// listener connection limit contributes nothing.
func ConnectionDemand(kafkas []*kafkav1beta2.Kafka) int64 {
	var demand int64
	for _, k := range kafkas {
		listener := k.Listener(constants.ExternalListenerName)
		if listener == nil || listener.Configuration == nil || listener.Configuration.MaxConnections == nil {
			continue
		}
		demand += int64(*listener.Configuration.MaxConnections) * int64(k.Replicas())
	}
	return demand
}

// ReplicasForZone computes the replica count for a zone-pinned ingress
// controller from the produce (ingress) and fetch (egress) quota summaries,
// the cluster-wide connection demand, and the fraction of traffic expected in
// this zone. There is an assumption that brokers are balanced across zones.
func ReplicasForZone(ingress, egress Summary, connectionDemand int64, zoneFraction float64, cfg Config) (int, error) {
	if cfg.AZReplicaCount != nil {
		return *cfg.AZReplicaCount, nil
	}

	throughput := (egress.Max + ingress.Max) / 2
	replicationThroughput := ingress.Max * 2

	// subtract out that we could share the node with a broker; we assume a
	// worst case that 1/2 of the traffic to this broker may come from other
	// replicas
	perReplica := cfg.MaxIngressThroughput.Value() - replicationThroughput - throughput/2 - oneMiB
	if perReplica < 0 {
		return 0, fmt.Errorf("%w: collocating with a broker takes more than the available node bandwidth",
			operrors.ErrConfigUnsatisfiable)
	}

	// average of the total ingress/egress expected in this zone, scaled back
	// to the configured peak
	demanded := float64(egress.Sum+ingress.Sum) * zoneFraction / 2
	demanded *= float64(cfg.PeakThroughputPercentage) / 100

	replicas := int(math.Ceil(demanded / float64(perReplica)))
	connectionReplicas := replicasForConnectionDemand(
		float64(int64(float64(connectionDemand)*zoneFraction)), cfg.MaxIngressConnections)

	return max(1, replicas, connectionReplicas), nil
}

// ReplicasForDefault computes the replica count for the default multi-zone
// ingress controller. These replicas are assumed to never become bandwidth
// constrained.
func ReplicasForDefault(connectionDemand int64, cfg Config) int {
	if cfg.DefaultReplicaCount != nil {
		return *cfg.DefaultReplicaCount
	}
	return replicasForConnectionDemand(float64(connectionDemand), cfg.MaxIngressConnections)
}

func replicasForConnectionDemand(connectionDemand float64, maxConnections int) int {
	return int(math.Ceil(connectionDemand / float64(maxConnections)))
}
