// Package config binds the operator process configuration from flags and
// environment variables and resolves it into the typed settings the managers
// consume.
package config

import (
	"fmt"

	flags "github.com/jessevdk/go-flags"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/managed-kafka/kas-ingress-operator/internal/capacity"
)

// Options is the raw flag/env surface. Quantities arrive as strings and are
// validated in Resolve.
type Options struct {
	IngressController IngressControllerOptions `group:"ingresscontroller" namespace:"ingresscontroller" env-namespace:"INGRESSCONTROLLER"`
	Images            ImageOptions             `group:"image" namespace:"image" env-namespace:"IMAGE"`
}

// IngressControllerOptions carries the ingress sizing and patching knobs.
type IngressControllerOptions struct {
	LimitCPU      string `long:"limit-cpu" env:"LIMIT_CPU" description:"CPU limit enforced on kas router deployments"`
	LimitMemory   string `long:"limit-memory" env:"LIMIT_MEMORY" description:"memory limit enforced on kas router deployments"`
	RequestCPU    string `long:"request-cpu" env:"REQUEST_CPU" description:"CPU request enforced on kas router deployments"`
	RequestMemory string `long:"request-memory" env:"REQUEST_MEMORY" description:"memory request enforced on kas router deployments"`

	DefaultReplicaCount *int `long:"default-replica-count" env:"DEFAULT_REPLICA_COUNT" description:"fixed replica count for the default ingress controller"`
	AZReplicaCount      *int `long:"az-replica-count" env:"AZ_REPLICA_COUNT" description:"fixed replica count for zone ingress controllers"`

	MaxIngressThroughput  string `long:"max-ingress-throughput" env:"MAX_INGRESS_THROUGHPUT" required:"true" description:"usable bandwidth of one ingress replica, bytes/s"`
	MaxIngressConnections int    `long:"max-ingress-connections" env:"MAX_INGRESS_CONNECTIONS" required:"true" description:"connection capacity of one ingress replica"`

	HardStopAfter            string   `long:"hard-stop-after" env:"HARD_STOP_AFTER" description:"hard-stop-after annotation value; blank disables"`
	IngressContainerCommand  []string `long:"ingress-container-command" env:"INGRESS_CONTAINER_COMMAND" env-delim:"," description:"router container command override"`
	ReloadIntervalSeconds    int      `long:"reload-interval-seconds" env:"RELOAD_INTERVAL_SECONDS" default:"5" description:"router reload interval; 0 disables the override"`
	PeakThroughputPercentage int      `long:"peak-throughput-percentage" env:"PEAK_THROUGHPUT_PERCENTAGE" default:"90" description:"portion of peak throughput to provision for"`

	ClusterDomainFallback string `long:"cluster-domain-fallback" env:"CLUSTER_DOMAIN_FALLBACK" description:"cluster app domain used when the default ingress controller is absent"`
}

// ImageOptions carries the operand image defaults consumed by the override
// manager.
type ImageOptions struct {
	AdminAPI   string  `long:"admin-api" env:"ADMIN_API" description:"default admin server image"`
	Canary     string  `long:"canary" env:"CANARY" description:"default canary image"`
	CanaryInit string  `long:"canary-init" env:"CANARY_INIT" description:"default canary init image"`
	Kafka      *string `long:"kafka" env:"KAFKA" description:"default kafka image"`
	Zookeeper  *string `long:"zookeeper" env:"ZOOKEEPER" description:"default zookeeper image"`
	Exporter   *string `long:"kafka-exporter" env:"KAFKA_EXPORTER" description:"default kafka exporter image"`
}

// IngressControllerConfig is the resolved ingress configuration.
type IngressControllerConfig struct {
	// RouterResources is non-nil when at least one resource knob is set;
	// a nil value deactivates the router deployment patcher.
	RouterResources         *corev1.ResourceRequirements
	IngressContainerCommand []string
	HardStopAfter           string
	ReloadIntervalSeconds   int

	MaxIngressThroughput     resource.Quantity
	MaxIngressConnections    int
	PeakThroughputPercentage int
	DefaultReplicaCount      *int
	AZReplicaCount           *int

	ClusterDomainFallback string
}

// CapacityConfig projects the knobs the capacity model needs.
func (c *IngressControllerConfig) CapacityConfig() capacity.Config {
	return capacity.Config{
		MaxIngressThroughput:     c.MaxIngressThroughput,
		MaxIngressConnections:    c.MaxIngressConnections,
		PeakThroughputPercentage: c.PeakThroughputPercentage,
		AZReplicaCount:           c.AZReplicaCount,
		DefaultReplicaCount:      c.DefaultReplicaCount,
	}
}

// ImageConfig is the resolved operand image defaults.
type ImageConfig struct {
	AdminAPI   string
	Canary     string
	CanaryInit string
	Kafka      *string
	Zookeeper  *string
	Exporter   *string
}

// Config is the fully resolved operator configuration.
type Config struct {
	IngressController IngressControllerConfig
	Images            ImageConfig
}

// Load parses args and the environment, returning the resolved configuration
// and the arguments it did not consume (left for other flag sets, such as the
// logger's).
func Load(args []string) (*Config, []string, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash|flags.IgnoreUnknown)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := Resolve(&opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, remaining, nil
}

// Resolve validates raw options into a Config.
func Resolve(opts *Options) (*Config, error) {
	ic := opts.IngressController

	maxThroughput, err := resource.ParseQuantity(ic.MaxIngressThroughput)
	if err != nil {
		return nil, fmt.Errorf("ingresscontroller.max-ingress-throughput %q: %w", ic.MaxIngressThroughput, err)
	}
	if ic.MaxIngressConnections <= 0 {
		return nil, fmt.Errorf("ingresscontroller.max-ingress-connections must be positive, got %d", ic.MaxIngressConnections)
	}
	if ic.PeakThroughputPercentage < 0 || ic.PeakThroughputPercentage > 100 {
		return nil, fmt.Errorf("ingresscontroller.peak-throughput-percentage must be within [0,100], got %d", ic.PeakThroughputPercentage)
	}

	routerResources, err := routerResources(ic)
	if err != nil {
		return nil, err
	}

	return &Config{
		IngressController: IngressControllerConfig{
			RouterResources:          routerResources,
			IngressContainerCommand:  ic.IngressContainerCommand,
			HardStopAfter:            ic.HardStopAfter,
			ReloadIntervalSeconds:    ic.ReloadIntervalSeconds,
			MaxIngressThroughput:     maxThroughput,
			MaxIngressConnections:    ic.MaxIngressConnections,
			PeakThroughputPercentage: ic.PeakThroughputPercentage,
			DefaultReplicaCount:      ic.DefaultReplicaCount,
			AZReplicaCount:           ic.AZReplicaCount,
			ClusterDomainFallback:    ic.ClusterDomainFallback,
		},
		Images: ImageConfig{
			AdminAPI:   opts.Images.AdminAPI,
			Canary:     opts.Images.Canary,
			CanaryInit: opts.Images.CanaryInit,
			Kafka:      opts.Images.Kafka,
			Zookeeper:  opts.Images.Zookeeper,
			Exporter:   opts.Images.Exporter,
		},
	}, nil
}

func routerResources(ic IngressControllerOptions) (*corev1.ResourceRequirements, error) {
	limits := corev1.ResourceList{}
	requests := corev1.ResourceList{}

	add := func(list corev1.ResourceList, name corev1.ResourceName, knob, value string) error {
		if value == "" {
			return nil
		}
		quantity, err := resource.ParseQuantity(value)
		if err != nil {
			return fmt.Errorf("ingresscontroller.%s %q: %w", knob, value, err)
		}
		list[name] = quantity
		return nil
	}

	if err := add(limits, corev1.ResourceCPU, "limit-cpu", ic.LimitCPU); err != nil {
		return nil, err
	}
	if err := add(limits, corev1.ResourceMemory, "limit-memory", ic.LimitMemory); err != nil {
		return nil, err
	}
	if err := add(requests, corev1.ResourceCPU, "request-cpu", ic.RequestCPU); err != nil {
		return nil, err
	}
	if err := add(requests, corev1.ResourceMemory, "request-memory", ic.RequestMemory); err != nil {
		return nil, err
	}

	if len(limits) == 0 && len(requests) == 0 {
		return nil, nil
	}

	out := &corev1.ResourceRequirements{}
	if len(limits) > 0 {
		out.Limits = limits
	}
	if len(requests) > 0 {
		out.Requests = requests
	}
	return out, nil
}
