package ingress

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"

	operatorv1 "github.com/openshift/api/operator/v1"

	kafkav1beta2 "github.com/managed-kafka/kas-ingress-operator/api/kafka/v1beta2"
	"github.com/managed-kafka/kas-ingress-operator/internal/config"
	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
)

func testConfig() config.IngressControllerConfig {
	return config.IngressControllerConfig{
		MaxIngressThroughput:     resource.MustParse("300Mi"),
		MaxIngressConnections:    10000,
		PeakThroughputPercentage: 50,
	}
}

func testKafka(name string, replicas int32, produceQuota, fetchQuota string, maxConnections int32) *kafkav1beta2.Kafka {
	config := map[string]interface{}{}
	if produceQuota != "" {
		config[constants.ProduceQuotaConfigKey] = produceQuota
	}
	if fetchQuota != "" {
		config[constants.FetchQuotaConfigKey] = fetchQuota
	}
	return &kafkav1beta2.Kafka{
		TypeMeta:   metav1.TypeMeta{APIVersion: kafkav1beta2.GroupVersion.String(), Kind: kafkav1beta2.KafkaKind},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "kafka-" + name},
		Spec: &kafkav1beta2.KafkaSpec{
			Kafka: kafkav1beta2.KafkaClusterSpec{
				Replicas: replicas,
				Config:   config,
				Listeners: []kafkav1beta2.GenericKafkaListener{
					{
						Name: constants.ExternalListenerName,
						Configuration: &kafkav1beta2.GenericKafkaListenerConfiguration{
							MaxConnections: ptr.To(maxConnections),
						},
					},
				},
			},
		},
	}
}

var _ = Describe("Reconcile", func() {
	var (
		ctx context.Context
		env *testEnv
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if env != nil {
			env.stop()
			env = nil
		}
	})

	getController := func(name string) *operatorv1.IngressController {
		ic, err := env.operator.OperatorV1().IngressControllers(constants.IngressOperatorNamespace).
			Get(ctx, name, metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		return ic
	}

	It("creates a zone controller and the default controller for a single zone", func() {
		env = startTestEnv(testConfig(), fixtures{
			kube:     []runtime.Object{workerNode("node-1", "a")},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)

		zoneController := getController("kas-a")
		Expect(*zoneController.Spec.Replicas).To(Equal(int32(1)))
		Expect(zoneController.Spec.Domain).To(Equal("kas-a.testing.domain.tld"))
		Expect(zoneController.Spec.RouteSelector.MatchLabels).To(
			HaveKeyWithValue("managedkafka.bf2.org/kas-a", "true"))
		Expect(zoneController.Spec.NodePlacement.NodeSelector.MatchLabels).To(
			HaveKeyWithValue(constants.LabelTopologyZone, "a"))
		Expect(zoneController.Labels).To(
			HaveKeyWithValue(constants.LabelAppManagedBy, constants.LabelValueManagedBy))

		defaultController := getController("kas")
		Expect(*defaultController.Spec.Replicas).To(Equal(int32(1)))
		Expect(defaultController.Spec.Domain).To(Equal("kas.testing.domain.tld"))
		Expect(defaultController.Spec.RouteSelector.MatchLabels).To(
			HaveKeyWithValue(constants.LabelKasMultiZone, "true"))
		Expect(defaultController.Spec.NodePlacement).To(BeNil())

		Expect(env.manager.GetRouteMatchLabels()).To(SatisfyAll(
			HaveKeyWithValue("managedkafka.bf2.org/kas-a", "true"),
			HaveKeyWithValue(constants.LabelKasMultiZone, "true"),
		))
		Expect(env.manager.GetClusterDomain()).To(Equal("testing.domain.tld"))
	})

	It("raises a single replica to two on clusters with more than three workers", func() {
		env = startTestEnv(testConfig(), fixtures{
			kube: []runtime.Object{
				workerNode("node-1", "a"), workerNode("node-2", "a"),
				workerNode("node-3", "a"), workerNode("node-4", "a"),
			},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)

		Expect(*getController("kas-a").Spec.Replicas).To(Equal(int32(2)))
		Expect(*getController("kas").Spec.Replicas).To(Equal(int32(2)))
	})

	It("holds replicas when the reduction is within the hysteresis margin", func() {
		cfg := testConfig()
		cfg.AZReplicaCount = ptr.To(4)

		existing := existingController("kas-a", 5)
		env = startTestEnv(cfg, fixtures{
			kube:     []runtime.Object{workerNode("node-1", "a")},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld"), existing},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)
		Expect(*getController("kas-a").Spec.Replicas).To(Equal(int32(5)))
	})

	It("releases replicas when the reduction exceeds the hysteresis margin", func() {
		cfg := testConfig()
		cfg.AZReplicaCount = ptr.To(3)

		existing := existingController("kas-a", 5)
		env = startTestEnv(cfg, fixtures{
			kube:     []runtime.Object{workerNode("node-1", "a")},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld"), existing},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)
		Expect(*getController("kas-a").Spec.Replicas).To(Equal(int32(3)))
	})

	It("sizes connection-bound zones from the connection demand", func() {
		env = startTestEnv(testConfig(), fixtures{
			kube: []runtime.Object{
				workerNode("node-1", "a"), workerNode("node-2", "b"), workerNode("node-3", "c"),
			},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 6, "1Mi", "1Mi", 50000)},
		})

		env.manager.Reconcile(ctx)

		for _, zone := range []string{"a", "b", "c"} {
			ic := getController(constants.ZoneIngressControllerName(zone))
			Expect(*ic.Spec.Replicas).To(Equal(int32(10)), "zone %s", zone)
			Expect(ic.Spec.NodePlacement.NodeSelector.MatchLabels).To(
				HaveKeyWithValue(constants.LabelTopologyZone, zone))
		}
	})

	It("writes each controller once and nothing on a repeated pass", func() {
		env = startTestEnv(testConfig(), fixtures{
			kube:     []runtime.Object{workerNode("node-1", "a")},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)

		creates, updates := env.ingressControllerWrites()
		Expect(creates).To(Equal(2))
		Expect(updates).To(BeZero())

		// let the caches observe the writes before the second pass
		env.waitForIngressController("kas-a")
		env.waitForIngressController("kas")

		env.manager.Reconcile(ctx)

		creates, updates = env.ingressControllerWrites()
		Expect(creates).To(Equal(2))
		Expect(updates).To(BeZero())
	})

	It("preserves foreign fields without rewriting converged controllers", func() {
		convergedZone := desiredIngressController(buildParams{
			name:          "kas-a",
			domain:        "kas-a.testing.domain.tld",
			replicas:      2,
			routeSelector: &metav1.LabelSelector{MatchLabels: map[string]string{"managedkafka.bf2.org/kas-a": "true"}},
			topologyValue: "a",
			workerNodes:   1,
		})
		convergedZone.Spec.NamespaceSelector = &metav1.LabelSelector{MatchLabels: map[string]string{"team": "mk"}}
		convergedZone.Spec.UnsupportedConfigOverrides = runtime.RawExtension{Raw: []byte(`{"dnsRecordsPolicy":"Unmanaged"}`)}

		convergedDefault := desiredIngressController(buildParams{
			name:          "kas",
			domain:        "kas.testing.domain.tld",
			replicas:      2,
			routeSelector: &metav1.LabelSelector{MatchLabels: map[string]string{constants.LabelKasMultiZone: "true"}},
			workerNodes:   1,
		})

		env = startTestEnv(testConfig(), fixtures{
			kube: []runtime.Object{workerNode("node-1", "a")},
			operator: []runtime.Object{
				defaultClusterIngressController("apps.testing.domain.tld"),
				convergedZone, convergedDefault,
			},
			kafkas: []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)

		creates, updates := env.ingressControllerWrites()
		Expect(creates).To(BeZero())
		Expect(updates).To(BeZero())

		survivor := getController("kas-a")
		Expect(survivor.Spec.NamespaceSelector).NotTo(BeNil())
		var overrides map[string]interface{}
		Expect(json.Unmarshal(survivor.Spec.UnsupportedConfigOverrides.Raw, &overrides)).To(Succeed())
		Expect(overrides).To(HaveKeyWithValue("dnsRecordsPolicy", "Unmanaged"))
	})

	It("never shrinks the route match labels", func() {
		env = startTestEnv(testConfig(), fixtures{
			kube:     []runtime.Object{workerNode("node-1", "a"), workerNode("node-2", "b")},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "30Mi", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)
		Expect(env.manager.GetRouteMatchLabels()).To(HaveKey("managedkafka.bf2.org/kas-b"))

		Expect(env.kube.CoreV1().Nodes().Delete(ctx, "node-2", metav1.DeleteOptions{})).To(Succeed())
		Eventually(func() int {
			return len(env.informers.Nodes().List())
		}, 5*time.Second, 20*time.Millisecond).Should(Equal(1))

		env.manager.Reconcile(ctx)

		Expect(env.manager.GetRouteMatchLabels()).To(HaveKey("managedkafka.bf2.org/kas-b"))
		// the zone controller is never deleted either
		Expect(getController("kas-b")).NotTo(BeNil())
	})

	It("aborts the pass when a kafka lacks a required quota", func() {
		env = startTestEnv(testConfig(), fixtures{
			kube:     []runtime.Object{workerNode("node-1", "a")},
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
			kafkas:   []*kafkav1beta2.Kafka{testKafka("one", 3, "", "30Mi", 1000)},
		})

		env.manager.Reconcile(ctx)

		creates, updates := env.ingressControllerWrites()
		Expect(creates).To(BeZero())
		Expect(updates).To(BeZero())
	})
})
