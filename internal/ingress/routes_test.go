package ingress

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	operatorv1 "github.com/openshift/api/operator/v1"
	routev1 "github.com/openshift/api/route/v1"

	kafkav1beta2 "github.com/managed-kafka/kas-ingress-operator/api/kafka/v1beta2"
	"github.com/managed-kafka/kas-ingress-operator/api/v1alpha1"
	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
)

const (
	mkNamespace   = "kafka-my-kafka"
	bootstrapHost = "my-kafka--abc123.kas.testing.domain.tld"
)

func kasIngressController(name, domain string) *operatorv1.IngressController {
	return &operatorv1.IngressController{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: constants.IngressOperatorNamespace},
		Spec:       operatorv1.IngressControllerSpec{Domain: domain},
	}
}

func brokerRoute(name, host, serviceName string, ownerKind string) *routev1.Route {
	return &routev1.Route{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: mkNamespace,
			OwnerReferences: []metav1.OwnerReference{
				{APIVersion: "kafka.strimzi.io/v1beta2", Kind: ownerKind, Name: "my-kafka"},
			},
		},
		Spec: routev1.RouteSpec{
			Host: host,
			To:   routev1.RouteTargetReference{Kind: "Service", Name: serviceName},
		},
	}
}

func brokerService(name string, selector map[string]string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: mkNamespace},
		Spec:       corev1.ServiceSpec{Selector: selector},
	}
}

func brokerPod(name, nodeName string, extraLabels map[string]string) *corev1.Pod {
	labels := map[string]string{
		constants.LabelAppManagedBy: constants.LabelValueStrimziOperator,
		constants.LabelAppName:      constants.LabelValueKafka,
	}
	for key, value := range extraLabels {
		labels[key] = value
	}
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: mkNamespace, Labels: labels},
		Spec:       corev1.PodSpec{NodeName: nodeName},
	}
}

var _ = Describe("GetManagedKafkaRoutesFor", func() {
	var env *testEnv

	AfterEach(func() {
		if env != nil {
			env.stop()
			env = nil
		}
	})

	managedKafka := &v1alpha1.ManagedKafka{
		ObjectMeta: metav1.ObjectMeta{Name: "my-kafka", Namespace: mkNamespace},
		Spec: v1alpha1.ManagedKafkaSpec{
			Endpoint: v1alpha1.EndpointSpec{BootstrapServerHost: bootstrapHost},
		},
	}

	It("projects bootstrap, admin-server and per-broker endpoints", func() {
		selector := map[string]string{"statefulset.kubernetes.io/pod-name": "my-kafka-kafka-0"}

		env = startTestEnv(testConfig(), fixtures{
			kube: []runtime.Object{
				workerNode("node-1", "a"),
				brokerPod("my-kafka-kafka-0", "node-1", selector),
				brokerService("my-kafka-kafka-0", selector),
			},
			operator: []runtime.Object{
				defaultClusterIngressController("apps.testing.domain.tld"),
				kasIngressController("kas", "kas.testing.domain.tld"),
				kasIngressController("kas-a", "kas-a.testing.domain.tld"),
			},
			route: []runtime.Object{
				brokerRoute("my-kafka-kafka-0", "broker-0-"+bootstrapHost, "my-kafka-kafka-0", kafkav1beta2.KafkaKind),
				// backing service missing: projected with an empty router
				brokerRoute("my-kafka-kafka-1", "broker-1-"+bootstrapHost, "my-kafka-kafka-1", kafkav1beta2.KafkaKind),
				// not a broker route
				brokerRoute("my-kafka-admin", "admin-"+bootstrapHost, "my-kafka-admin", v1alpha1.ManagedKafkaKind),
			},
		})

		routes := env.manager.GetManagedKafkaRoutesFor(managedKafka)

		Expect(routes).To(Equal([]v1alpha1.ManagedKafkaRoute{
			{Name: "admin-server", Prefix: "admin-server", Router: "ingresscontroller.kas.testing.domain.tld"},
			{Name: "bootstrap", Prefix: "", Router: "ingresscontroller.kas.testing.domain.tld"},
			{Name: "broker-0", Prefix: "broker-0", Router: "ingresscontroller.kas-a.testing.domain.tld"},
			{Name: "broker-1", Prefix: "broker-1", Router: ""},
		}))
	})

	It("prefers the status domain over the spec domain", func() {
		kas := kasIngressController("kas", "spec.domain.tld")
		kas.Status.Domain = "status.domain.tld"

		env = startTestEnv(testConfig(), fixtures{
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld"), kas},
		})

		routes := env.manager.GetManagedKafkaRoutesFor(managedKafka)
		Expect(routes[1].Router).To(Equal("ingresscontroller.status.domain.tld"))
	})

	It("returns empty multi-zone domains when the kas controller is absent", func() {
		env = startTestEnv(testConfig(), fixtures{
			operator: []runtime.Object{defaultClusterIngressController("apps.testing.domain.tld")},
		})

		routes := env.manager.GetManagedKafkaRoutesFor(managedKafka)
		Expect(routes).To(HaveLen(2))
		Expect(routes[0].Router).To(BeEmpty())
		Expect(routes[1].Router).To(BeEmpty())
	})

	It("ignores routes owned by other kafka clusters", func() {
		other := brokerRoute("other-kafka-kafka-0", "broker-0-other", "other-kafka-kafka-0", kafkav1beta2.KafkaKind)
		other.OwnerReferences[0].Name = "other-kafka"

		env = startTestEnv(testConfig(), fixtures{
			operator: []runtime.Object{
				defaultClusterIngressController("apps.testing.domain.tld"),
				kasIngressController("kas", "kas.testing.domain.tld"),
			},
			route: []runtime.Object{other},
		})

		routes := env.manager.GetManagedKafkaRoutesFor(managedKafka)
		Expect(routes).To(HaveLen(2))
	})
})
