package ingress

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	toolscache "k8s.io/client-go/tools/cache"

	"github.com/managed-kafka/kas-ingress-operator/internal/constants"
	operrors "github.com/managed-kafka/kas-ingress-operator/internal/errors"
	"github.com/managed-kafka/kas-ingress-operator/internal/informer"
	"github.com/managed-kafka/kas-ingress-operator/internal/schedule"
)

// routerDeploymentPatcher enforces resource requirements and a custom
// container command on the router deployments owned by kas ingress
// controllers. The ingress operator does not expose these knobs, so the
// deployments are edited directly; clustered informer events are debounced
// into a single edit per deployment.
type routerDeploymentPatcher struct {
	log         logr.Logger
	client      kubernetes.Interface
	deployments *informer.Informer[*appsv1.Deployment]

	resources corev1.ResourceRequirements
	command   []string

	debounce *schedule.Debouncer
	limiter  *rate.Limiter
}

func newRouterDeploymentPatcher(
	log logr.Logger,
	client kubernetes.Interface,
	deployments *informer.Informer[*appsv1.Deployment],
	resources corev1.ResourceRequirements,
	command []string,
	debounceDelay time.Duration,
) *routerDeploymentPatcher {
	p := &routerDeploymentPatcher{
		log:         log,
		client:      client,
		deployments: deployments,
		resources:   resources,
		command:     command,
		limiter:     rate.NewLimiter(rate.Limit(4), 2),
	}
	p.debounce = schedule.NewDebouncer(debounceDelay, p.patchKeys)
	return p
}

// Observe enqueues an eligible deployment for a debounced patch.
func (p *routerDeploymentPatcher) Observe(d *appsv1.Deployment) {
	if !p.shouldPatch(d) {
		return
	}
	key, err := toolscache.MetaNamespaceKeyFunc(d)
	if err != nil {
		return
	}
	p.debounce.Add(key)
}

// shouldPatch reports whether the deployment belongs to a kas ingress
// controller and drifts from the desired resources or command.
func (p *routerDeploymentPatcher) shouldPatch(d *appsv1.Deployment) bool {
	if !strings.HasPrefix(d.Labels[constants.LabelOwningIngressController], constants.IngressControllerPrefix) {
		return false
	}
	containers := d.Spec.Template.Spec.Containers
	if len(containers) != 1 {
		p.log.Error(operrors.ErrStructuralAnomaly, "Wrong number of containers for router deployment",
			"namespace", d.Namespace, "name", d.Name, "containers", len(containers))
		return false
	}
	container := containers[0]
	return !apiequality.Semantic.DeepEqual(container.Resources, p.resources) ||
		!slices.Equal(container.Command, p.command)
}

// patchKeys is the debounce flush: each surviving key is re-checked against
// the live cache and patched at most once.
func (p *routerDeploymentPatcher) patchKeys(keys []string) {
	ctx := context.Background()
	for _, key := range keys {
		namespace, name, err := toolscache.SplitMetaNamespaceKey(key)
		if err != nil {
			continue
		}
		d, ok := p.deployments.GetByKey(namespace, name)
		if !ok || !p.shouldPatch(d) {
			continue
		}
		p.patch(ctx, d)
	}
}

// Sweep patches every cached deployment still drifting from the desired
// state; the reconciler runs it at the end of each pass.
func (p *routerDeploymentPatcher) Sweep(ctx context.Context) {
	for _, d := range p.deployments.List() {
		if p.shouldPatch(d) {
			p.patch(ctx, d)
		}
	}
}

func (p *routerDeploymentPatcher) patch(ctx context.Context, d *appsv1.Deployment) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	p.log.Info("Updating the resource limits and container command for router deployment",
		"namespace", d.Namespace, "name", d.Name)

	updated := d.DeepCopy()
	updated.Spec.Template.Spec.Containers[0].Resources = p.resources
	updated.Spec.Template.Spec.Containers[0].Command = p.command

	if _, err := p.client.AppsV1().Deployments(updated.Namespace).Update(ctx, updated, metav1.UpdateOptions{}); err != nil {
		// transient; the next informer event or sweep retries
		p.log.Error(err, "Failed to update router deployment", "namespace", d.Namespace, "name", d.Name)
		return
	}
	routerPatchesTotal.Inc()
}
