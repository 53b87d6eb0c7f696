package informer

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/dynamic/dynamicinformer"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	toolscache "k8s.io/client-go/tools/cache"

	operatorv1 "github.com/openshift/api/operator/v1"
	routev1 "github.com/openshift/api/route/v1"
	operatorclient "github.com/openshift/client-go/operator/clientset/versioned"
	operatorinformers "github.com/openshift/client-go/operator/informers/externalversions"
	routeclient "github.com/openshift/client-go/route/clientset/versioned"
	routeinformers "github.com/openshift/client-go/route/informers/externalversions"

	kafkav1beta2 "github.com/managed-kafka/kas-ingress-operator/api/kafka/v1beta2"
	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
)

type startable interface {
	Start(stopCh <-chan struct{})
}

// Options selects the optional caches.
type Options struct {
	// WatchRouterDeployments enables the router deployment cache; it is off
	// unless the deployment patcher is active.
	WatchRouterDeployments bool
}

// Manager owns every informer cache in the process and implements the
// collaborator surface other managers consume: kafka workload snapshots,
// routes, services, and the managed kafka resync hook.
type Manager struct {
	log logr.Logger

	nodes              *Informer[*corev1.Node]
	brokerPods         *Informer[*corev1.Pod]
	ingressControllers *Informer[*operatorv1.IngressController]
	routerDeployments  *Informer[*appsv1.Deployment]
	services           *Informer[*corev1.Service]
	routes             *Informer[*routev1.Route]
	strimziConfigMaps  *Informer[*corev1.ConfigMap]
	kafkas             *Informer[*unstructured.Unstructured]

	factories []startable

	resyncMu      sync.RWMutex
	resyncHandler func()
}

// NewManager builds the informer caches over the given clients. Nothing is
// started; add the manager as a runnable.
func NewManager(
	log logr.Logger,
	kubeClient kubernetes.Interface,
	operator operatorclient.Interface,
	route routeclient.Interface,
	dynamicClient dynamic.Interface,
	opts Options,
) *Manager {
	m := &Manager{log: log}

	workerNodes := informers.NewSharedInformerFactoryWithOptions(kubeClient, 0,
		informers.WithTweakListOptions(func(o *metav1.ListOptions) {
			o.LabelSelector = constants.LabelWorkerNode + ",!" + constants.LabelInfraNode
		}))
	m.nodes = Wrap[*corev1.Node]("nodes", workerNodes.Core().V1().Nodes().Informer())

	brokerPods := informers.NewSharedInformerFactoryWithOptions(kubeClient, 0,
		informers.WithTweakListOptions(func(o *metav1.ListOptions) {
			o.LabelSelector = labels.Set{
				constants.LabelAppManagedBy: constants.LabelValueStrimziOperator,
				constants.LabelAppName:      constants.LabelValueKafka,
			}.String()
		}))
	m.brokerPods = Wrap[*corev1.Pod]("broker pods", brokerPods.Core().V1().Pods().Informer())

	services := informers.NewSharedInformerFactoryWithOptions(kubeClient, 0)
	m.services = Wrap[*corev1.Service]("services", services.Core().V1().Services().Informer())

	strimziConfigMaps := informers.NewSharedInformerFactoryWithOptions(kubeClient, 0,
		informers.WithTweakListOptions(func(o *metav1.ListOptions) {
			o.LabelSelector = "app=strimzi"
		}))
	m.strimziConfigMaps = Wrap[*corev1.ConfigMap]("strimzi config maps", strimziConfigMaps.Core().V1().ConfigMaps().Informer())

	operatorFactory := operatorinformers.NewSharedInformerFactoryWithOptions(operator, 0,
		operatorinformers.WithNamespace(constants.IngressOperatorNamespace))
	m.ingressControllers = Wrap[*operatorv1.IngressController]("ingress controllers",
		operatorFactory.Operator().V1().IngressControllers().Informer())

	routeFactory := routeinformers.NewSharedInformerFactory(route, 0)
	m.routes = Wrap[*routev1.Route]("routes", routeFactory.Route().V1().Routes().Informer())

	kafkaFactory := dynamicinformer.NewFilteredDynamicSharedInformerFactory(dynamicClient, 0, metav1.NamespaceAll, nil)
	m.kafkas = Wrap[*unstructured.Unstructured]("kafkas",
		kafkaFactory.ForResource(kafkav1beta2.GroupVersionResource).Informer())

	m.factories = []startable{workerNodes, brokerPods, services, strimziConfigMaps, operatorFactory, routeFactory, kafkaFactory}

	if opts.WatchRouterDeployments {
		routerDeployments := informers.NewSharedInformerFactoryWithOptions(kubeClient, 0,
			informers.WithNamespace(constants.IngressRouterNamespace),
			informers.WithTweakListOptions(func(o *metav1.ListOptions) {
				o.LabelSelector = constants.LabelOwningIngressController
			}))
		m.routerDeployments = Wrap[*appsv1.Deployment]("router deployments",
			routerDeployments.Apps().V1().Deployments().Informer())
		m.factories = append(m.factories, routerDeployments)
	}

	return m
}

// Start runs all informer factories until the context is cancelled. It
// implements manager.Runnable.
func (m *Manager) Start(ctx context.Context) error {
	for _, factory := range m.factories {
		factory.Start(ctx.Done())
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, informer := range m.allInformers() {
		group.Go(func() error {
			if !toolscache.WaitForCacheSync(groupCtx.Done(), informer.hasSynced) {
				return fmt.Errorf("cache for %s never synced", informer.name)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	m.log.Info("informer caches synced")

	<-ctx.Done()
	return nil
}

// NeedLeaderElection keeps the caches warm on every operator replica; only
// the writers wait for election.
func (m *Manager) NeedLeaderElection() bool {
	return false
}

// HasSynced reports whether every cache has completed its initial list.
func (m *Manager) HasSynced() bool {
	for _, informer := range m.allInformers() {
		if !informer.hasSynced() {
			return false
		}
	}
	return true
}

// WaitForCacheSync blocks until every cache has completed its initial list,
// or the context is cancelled.
func (m *Manager) WaitForCacheSync(ctx context.Context) bool {
	for _, informer := range m.allInformers() {
		if !toolscache.WaitForCacheSync(ctx.Done(), informer.hasSynced) {
			return false
		}
	}
	return true
}

type namedInformer struct {
	name      string
	hasSynced func() bool
}

func (m *Manager) allInformers() []namedInformer {
	all := []namedInformer{
		{m.nodes.Name(), m.nodes.HasSynced},
		{m.brokerPods.Name(), m.brokerPods.HasSynced},
		{m.services.Name(), m.services.HasSynced},
		{m.strimziConfigMaps.Name(), m.strimziConfigMaps.HasSynced},
		{m.ingressControllers.Name(), m.ingressControllers.HasSynced},
		{m.routes.Name(), m.routes.HasSynced},
		{m.kafkas.Name(), m.kafkas.HasSynced},
	}
	if m.routerDeployments != nil {
		all = append(all, namedInformer{m.routerDeployments.Name(), m.routerDeployments.HasSynced})
	}
	return all
}

// Nodes is the worker node cache (infra nodes excluded).
func (m *Manager) Nodes() *Informer[*corev1.Node] {
	return m.nodes
}

// BrokerPods is the strimzi-managed kafka broker pod cache.
func (m *Manager) BrokerPods() *Informer[*corev1.Pod] {
	return m.brokerPods
}

// IngressControllers is the ingress controller cache, scoped to the ingress
// operator namespace.
func (m *Manager) IngressControllers() *Informer[*operatorv1.IngressController] {
	return m.ingressControllers
}

// RouterDeployments is the router deployment cache; nil unless enabled in
// Options.
func (m *Manager) RouterDeployments() *Informer[*appsv1.Deployment] {
	return m.routerDeployments
}

// StrimziConfigMaps is the strimzi-labelled config map cache.
func (m *Manager) StrimziConfigMaps() *Informer[*corev1.ConfigMap] {
	return m.strimziConfigMaps
}

// GetKafkas snapshots the kafka workload objects. Objects that fail
// conversion are logged and skipped.
func (m *Manager) GetKafkas() []*kafkav1beta2.Kafka {
	raw := m.kafkas.List()
	out := make([]*kafkav1beta2.Kafka, 0, len(raw))
	for _, u := range raw {
		kafka := &kafkav1beta2.Kafka{}
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, kafka); err != nil {
			m.log.Error(err, "Skipping malformed kafka", "namespace", u.GetNamespace(), "name", u.GetName())
			continue
		}
		out = append(out, kafka)
	}
	return out
}

// GetRoutesInNamespace returns the cached routes in the given namespace.
func (m *Manager) GetRoutesInNamespace(namespace string) []*routev1.Route {
	return m.routes.ListNamespace(namespace)
}

// GetLocalService looks up a cached service, or nil.
func (m *Manager) GetLocalService(namespace, name string) *corev1.Service {
	svc, ok := m.services.GetByKey(namespace, name)
	if !ok {
		return nil
	}
	return svc
}

// SetResyncHandler installs the callback invoked by ResyncManagedKafka.
func (m *Manager) SetResyncHandler(handler func()) {
	m.resyncMu.Lock()
	defer m.resyncMu.Unlock()
	m.resyncHandler = handler
}

// ResyncManagedKafka requests a full downstream resync of the managed kafka
// operands. A no-op until a handler is installed.
func (m *Manager) ResyncManagedKafka() {
	m.resyncMu.RLock()
	handler := m.resyncHandler
	m.resyncMu.RUnlock()
	if handler != nil {
		handler()
	}
}
