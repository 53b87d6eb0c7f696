// Package ingress sizes and shapes the cluster's ingress routing tier for
// managed kafka traffic: one zone-pinned ingress controller per worker zone
// plus a default multi-zone controller, replica counts derived from observed
// kafka quotas and connection limits, and direct enforcement of router
// deployment overrides.
package ingress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	toolscache "k8s.io/client-go/tools/cache"
	"k8s.io/client-go/util/workqueue"

	operatorv1 "github.com/openshift/api/operator/v1"
	routev1 "github.com/openshift/api/route/v1"
	operatorclient "github.com/openshift/client-go/operator/clientset/versioned"

	kafkav1beta2 "github.com/managed-kafka/kas-ingress-operator/api/kafka/v1beta2"
	"github.com/managed-kafka/kas-ingress-operator/internal/capacity"
	"github.com/managed-kafka/kas-ingress-operator/internal/config"
	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
	"github.com/managed-kafka/kas-ingress-operator/internal/informer"
	"github.com/managed-kafka/kas-ingress-operator/internal/kube"
	"github.com/managed-kafka/kas-ingress-operator/internal/schedule"
)

// reconcileKey is the singleton work queue key; every trigger collapses onto
// it, which serializes reconciliation on the single queue worker.
const reconcileKey = "ingress-controllers"

// WorkloadCache is the collaborator surface the reconciler consumes for kafka
// workload snapshots and their routes.
type WorkloadCache interface {
	GetKafkas() []*kafkav1beta2.Kafka
	GetRoutesInNamespace(namespace string) []*routev1.Route
	GetLocalService(namespace, name string) *corev1.Service
}

// Manager reconciles the kas ingress controllers. It will not reclaim excess
// replicas until there is a reduction in demand beyond the hysteresis margin.
type Manager struct {
	log logr.Logger
	cfg config.IngressControllerConfig

	kubeClient     kubernetes.Interface
	operatorClient operatorclient.Interface
	informers      *informer.Manager
	workloads      WorkloadCache

	queue   workqueue.TypedRateLimitingInterface[string]
	trigger *schedule.Trigger
	patcher *routerDeploymentPatcher

	labelsMu         sync.RWMutex
	routeMatchLabels map[string]string
}

// NewManager wires the reconciler onto the informer caches. Event handlers
// are registered immediately; nothing runs until Start.
func NewManager(
	log logr.Logger,
	cfg config.IngressControllerConfig,
	kubeClient kubernetes.Interface,
	operatorClient operatorclient.Interface,
	informers *informer.Manager,
	workloads WorkloadCache,
) (*Manager, error) {
	m := &Manager{
		log:              log,
		cfg:              cfg,
		kubeClient:       kubeClient,
		operatorClient:   operatorClient,
		informers:        informers,
		workloads:        workloads,
		queue:            workqueue.NewTypedRateLimitingQueue(workqueue.DefaultTypedControllerRateLimiter[string]()),
		trigger:          schedule.NewTrigger(),
		routeMatchLabels: map[string]string{},
	}

	if cfg.RouterResources != nil && informers.RouterDeployments() != nil {
		m.patcher = newRouterDeploymentPatcher(log, kubeClient, informers.RouterDeployments(),
			*cfg.RouterResources, cfg.IngressContainerCommand, constants.RouterPatchDebounce)
	}

	if err := m.registerHandlers(); err != nil {
		return nil, err
	}
	m.trigger.Every(constants.ReconcileInterval, m.enqueue)

	return m, nil
}

func (m *Manager) registerHandlers() error {
	// node updates are deliberately ignored; only membership changes affect
	// the zone set
	if err := m.informers.Nodes().AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		AddFunc:    func(interface{}) { m.enqueue() },
		DeleteFunc: func(interface{}) { m.enqueue() },
	}); err != nil {
		return err
	}

	// broker pod adds signal new placement; updates and deletes do not
	if err := m.informers.BrokerPods().AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(interface{}) { m.enqueue() },
	}); err != nil {
		return err
	}

	if err := m.informers.IngressControllers().AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		AddFunc:    func(interface{}) { m.enqueue() },
		UpdateFunc: func(interface{}, interface{}) { m.enqueue() },
		DeleteFunc: func(interface{}) { m.enqueue() },
	}); err != nil {
		return err
	}

	if m.patcher != nil {
		if err := m.informers.RouterDeployments().AddEventHandler(toolscache.ResourceEventHandlerFuncs{
			AddFunc: func(obj interface{}) {
				if d, ok := obj.(*appsv1.Deployment); ok {
					m.patcher.Observe(d)
				}
			},
			UpdateFunc: func(_, obj interface{}) {
				if d, ok := obj.(*appsv1.Deployment); ok {
					m.patcher.Observe(d)
				}
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) enqueue() {
	m.queue.Add(reconcileKey)
}

// Start runs the single reconcile worker and the periodic trigger until the
// context is cancelled. It implements manager.Runnable.
func (m *Manager) Start(ctx context.Context) error {
	m.trigger.Start()
	defer m.trigger.Stop()

	go func() {
		<-ctx.Done()
		m.queue.ShutDown()
	}()

	// prime an initial pass; the readiness gate skips it if the caches have
	// not synced yet
	m.enqueue()

	for m.processNext(ctx) {
	}
	return nil
}

// NeedLeaderElection restricts the reconciler to the elected operator
// replica.
func (m *Manager) NeedLeaderElection() bool {
	return true
}

func (m *Manager) processNext(ctx context.Context) bool {
	key, shutdown := m.queue.Get()
	if shutdown {
		return false
	}
	defer m.queue.Done(key)

	m.Reconcile(ctx)
	m.queue.Forget(key)
	return true
}

// Reconcile drives one full pass: zone controllers, then the default
// controller, then the router deployment sweep. At most one pass runs at a
// time per process.
func (m *Manager) Reconcile(ctx context.Context) {
	if !m.ready() {
		m.log.Info("One or more informer caches are not yet ready, skipping reconcile")
		reconcileSkippedTotal.Inc()
		return
	}

	start := time.Now()
	defer func() {
		reconcileDurationHistogram.Observe(time.Since(start).Seconds())
	}()

	clusterDomain, ok := m.clusterDomain()
	if !ok {
		m.log.Error(nil, "No default ingress controller domain and no fallback configured, skipping reconcile")
		reconcileErrorsTotal.WithLabelValues("no_cluster_domain").Inc()
		return
	}

	zones := m.workerZones()
	kafkas := m.workloads.GetKafkas()
	connectionDemand := capacity.ConnectionDemand(kafkas)

	if err := m.reconcileZoneControllers(ctx, zones, clusterDomain, kafkas, connectionDemand); err != nil {
		// malformed workloads or unsatisfiable configuration abort the pass;
		// the next trigger retries with fresh data
		m.log.Error(err, "Aborting ingress reconcile pass")
		reconcileErrorsTotal.WithLabelValues("capacity").Inc()
		return
	}

	m.reconcileDefaultController(ctx, clusterDomain, connectionDemand)

	if m.patcher != nil {
		m.patcher.Sweep(ctx)
	}
}

func (m *Manager) ready() bool {
	return m.informers.HasSynced()
}

// clusterDomain resolves the cluster app domain from the default ingress
// controller status, stripped of its leading "apps." part. The configured
// fallback covers clusters where the default controller is absent; with
// neither, the pass cannot proceed.
func (m *Manager) clusterDomain() (string, bool) {
	domain := m.cfg.ClusterDomainFallback
	if ic, ok := m.informers.IngressControllers().GetByKey(constants.IngressOperatorNamespace, constants.DefaultIngressControllerName); ok && ic.Status.Domain != "" {
		domain = ic.Status.Domain
	}
	if domain == "" {
		return "", false
	}
	return strings.TrimPrefix(domain, "apps."), true
}

// GetClusterDomain exposes the resolved cluster app domain to collaborators.
func (m *Manager) GetClusterDomain() string {
	domain, _ := m.clusterDomain()
	return domain
}

// workerZones enumerates the distinct zone labels across worker nodes.
func (m *Manager) workerZones() []string {
	seen := map[string]struct{}{}
	for _, node := range m.informers.Nodes().List() {
		zone := node.Labels[constants.LabelTopologyZone]
		if zone == "" {
			continue
		}
		seen[zone] = struct{}{}
	}
	zones := make([]string, 0, len(seen))
	for zone := range seen {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

func (m *Manager) reconcileZoneControllers(ctx context.Context, zones []string, clusterDomain string, kafkas []*kafkav1beta2.Kafka, connectionDemand int64) error {
	if len(zones) == 0 {
		return nil
	}

	egress, err := capacity.Summarize(kafkas, capacity.FetchQuota, "")
	if err != nil {
		return fmt.Errorf("summarizing fetch quotas: %w", err)
	}
	ingress, err := capacity.Summarize(kafkas, capacity.ProduceQuota, "")
	if err != nil {
		return fmt.Errorf("summarizing produce quotas: %w", err)
	}

	// there is an assumption that the nodes and brokers are balanced by zone
	zoneFraction := 1 / float64(len(zones))
	replicas, err := capacity.ReplicasForZone(ingress, egress, connectionDemand, zoneFraction, m.cfg.CapacityConfig())
	if err != nil {
		return err
	}

	for _, zone := range zones {
		name := constants.ZoneIngressControllerName(zone)
		labelKey := constants.RouteLabelKey(name)
		m.AddToRouteMatchLabels(labelKey, "true")

		m.apply(ctx, buildParams{
			name:          name,
			domain:        name + "." + clusterDomain,
			replicas:      replicas,
			routeSelector: &metav1.LabelSelector{MatchLabels: map[string]string{labelKey: "true"}},
			topologyValue: zone,
		})
	}
	return nil
}

func (m *Manager) reconcileDefaultController(ctx context.Context, clusterDomain string, connectionDemand int64) {
	m.AddToRouteMatchLabels(constants.LabelKasMultiZone, "true")

	m.apply(ctx, buildParams{
		name:          constants.IngressControllerPrefix,
		domain:        constants.IngressControllerPrefix + "." + clusterDomain,
		replicas:      capacity.ReplicasForDefault(connectionDemand, m.cfg.CapacityConfig()),
		routeSelector: &metav1.LabelSelector{MatchLabels: map[string]string{constants.LabelKasMultiZone: "true"}},
	})
}

// apply fills in the shared build inputs, pairs the candidate with its
// observed object, and writes it back when needed. Write failures are
// transient: logged, not propagated.
func (m *Manager) apply(ctx context.Context, p buildParams) {
	existing, _ := m.informers.IngressControllers().GetByKey(constants.IngressOperatorNamespace, p.name)
	p.existing = existing
	p.workerNodes = len(m.informers.Nodes().List())
	p.hardStopAfter = m.cfg.HardStopAfter
	p.reloadIntervalSeconds = m.cfg.ReloadIntervalSeconds

	candidate := desiredIngressController(p)
	m.createOrEdit(ctx, candidate, existing)
}

func (m *Manager) createOrEdit(ctx context.Context, candidate, existing *operatorv1.IngressController) {
	client := m.operatorClient.OperatorV1().IngressControllers(constants.IngressOperatorNamespace)

	if existing == nil {
		m.log.Info("Creating IngressController", "name", candidate.Name)
		if _, err := client.Create(ctx, candidate, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
			m.log.Error(err, "Failed to create IngressController", "name", candidate.Name)
			reconcileErrorsTotal.WithLabelValues("write").Inc()
			return
		}
	} else {
		needed, patch, err := kube.NeedsUpdate(candidate, existing)
		if err != nil {
			m.log.Error(err, "Failed to diff IngressController", "name", candidate.Name)
			reconcileErrorsTotal.WithLabelValues("diff").Inc()
			return
		}
		if !needed {
			return
		}
		m.log.Info("Updating the existing IngressController", "name", candidate.Name, "patch", kube.FormatPatch(patch))
		if _, err := client.Update(ctx, candidate, metav1.UpdateOptions{}); err != nil {
			m.log.Error(err, "Failed to update IngressController", "name", candidate.Name)
			reconcileErrorsTotal.WithLabelValues("write").Inc()
			return
		}
	}

	if candidate.Spec.Replicas != nil {
		controllerReplicasGauge.WithLabelValues(candidate.Name).Set(float64(*candidate.Spec.Replicas))
	}
}

// GetRouteMatchLabels snapshots the route-selection labels collaborators
// stamp on managed kafka routes. The set only grows.
func (m *Manager) GetRouteMatchLabels() map[string]string {
	m.labelsMu.RLock()
	defer m.labelsMu.RUnlock()
	out := make(map[string]string, len(m.routeMatchLabels))
	for key, value := range m.routeMatchLabels {
		out[key] = value
	}
	return out
}

// AddToRouteMatchLabels records a route-selection label.
func (m *Manager) AddToRouteMatchLabels(key, value string) {
	m.labelsMu.Lock()
	defer m.labelsMu.Unlock()
	m.routeMatchLabels[key] = value
}
