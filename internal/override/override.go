// Package override manages per-strimzi-version operand overrides published by
// the fleet manager through strimzi-labelled config maps. Overrides carry
// replacement images and environment adjustments for the managed kafka
// operands; changes trigger a full managed kafka resync downstream.
package override

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-containerregistry/pkg/name"
	corev1 "k8s.io/api/core/v1"
	toolscache "k8s.io/client-go/tools/cache"
	"sigs.k8s.io/yaml"

	"github.com/managed-kafka/kas-ingress-operator/internal/config"
	"github.com/managed-kafka/kas-ingress-operator/internal/informer"
)

// OperandsConfigKey is the config map key carrying the override document.
const OperandsConfigKey = "fleetshard_operands.yaml"

// strimziClusterOperatorPrefix selects the config maps published per strimzi
// bundle version.
const strimziClusterOperatorPrefix = "strimzi-cluster-operator"

// StrimziManager resolves the related image a strimzi bundle declares for an
// operand component; an empty string means unknown.
type StrimziManager interface {
	GetRelatedImage(strimziVersion, component string) string
}

// Resyncer requests a full downstream resync of the managed kafka operands.
type Resyncer interface {
	ResyncManagedKafka()
}

// OperandOverride is a single operand's override: an optional image, an env
// adjustment list, and a pass-through bag of properties this operator does
// not interpret.
type OperandOverride struct {
	Image                string
	Env                  []corev1.EnvVar
	AdditionalProperties map[string]interface{}
}

// UnmarshalJSON captures the known fields and routes everything else into the
// additional-properties bag untouched.
func (o *OperandOverride) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch key {
		case "image":
			if err := json.Unmarshal(value, &o.Image); err != nil {
				return err
			}
		case "env":
			if err := json.Unmarshal(value, &o.Env); err != nil {
				return err
			}
		default:
			var parsed interface{}
			if err := json.Unmarshal(value, &parsed); err != nil {
				return err
			}
			if o.AdditionalProperties == nil {
				o.AdditionalProperties = map[string]interface{}{}
			}
			o.AdditionalProperties[key] = parsed
		}
	}
	return nil
}

// ApplyEnvironmentTo merges the override env list into the original ordered
// list. An entry with neither value nor valueFrom removes the original;
// otherwise it replaces in place or appends.
func (o OperandOverride) ApplyEnvironmentTo(originals []corev1.EnvVar) []corev1.EnvVar {
	out := make([]corev1.EnvVar, len(originals))
	copy(out, originals)

	index := make(map[string]int, len(out))
	for i, envVar := range out {
		index[envVar.Name] = i
	}

	for _, envVar := range o.Env {
		position, exists := index[envVar.Name]
		if envVar.Value == "" && envVar.ValueFrom == nil {
			if exists {
				out = append(out[:position], out[position+1:]...)
				delete(index, envVar.Name)
				for key, i := range index {
					if i > position {
						index[key] = i - 1
					}
				}
			}
			continue
		}
		if exists {
			out[position] = envVar
		} else {
			index[envVar.Name] = len(out)
			out = append(out, envVar)
		}
	}
	return out
}

// CanaryOverride carries the canary override plus its init container.
type CanaryOverride struct {
	OperandOverride
	Init OperandOverride
}

func (c *CanaryOverride) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.OperandOverride); err != nil {
		return err
	}
	if raw, ok := c.AdditionalProperties["init"]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(encoded, &c.Init); err != nil {
			return err
		}
		delete(c.AdditionalProperties, "init")
	}
	return nil
}

// KafkaOverride carries the kafka override plus broker config adjustments.
type KafkaOverride struct {
	OperandOverride
	BrokerConfig map[string]interface{}
}

func (k *KafkaOverride) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &k.OperandOverride); err != nil {
		return err
	}
	if raw, ok := k.AdditionalProperties["brokerConfig"]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(encoded, &k.BrokerConfig); err != nil {
			return err
		}
		delete(k.AdditionalProperties, "brokerConfig")
	}
	return nil
}

// OperandOverrides is the full override document for one strimzi version.
type OperandOverrides struct {
	Canary        CanaryOverride  `json:"canary"`
	AdminServer   OperandOverride `json:"admin-server"`
	Kafka         KafkaOverride   `json:"kafka"`
	Zookeeper     OperandOverride `json:"zookeeper"`
	KafkaExporter OperandOverride `json:"kafka-exporter"`
}

// Manager tracks the override documents and resolves operand images.
type Manager struct {
	log      logr.Logger
	images   config.ImageConfig
	strimzi  StrimziManager
	resyncer Resyncer

	mu        sync.RWMutex
	overrides map[string]*OperandOverrides
}

// NewManager returns a manager with no overrides loaded.
func NewManager(log logr.Logger, images config.ImageConfig, strimzi StrimziManager, resyncer Resyncer) *Manager {
	return &Manager{
		log:       log,
		images:    images,
		strimzi:   strimzi,
		resyncer:  resyncer,
		overrides: map[string]*OperandOverrides{},
	}
}

// RegisterHandlers subscribes the manager to the strimzi config map cache.
func (m *Manager) RegisterHandlers(configMaps *informer.Informer[*corev1.ConfigMap]) error {
	return configMaps.AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			if cm, ok := obj.(*corev1.ConfigMap); ok {
				m.UpdateOverrides(cm)
			}
		},
		UpdateFunc: func(_, obj interface{}) {
			if cm, ok := obj.(*corev1.ConfigMap); ok {
				m.UpdateOverrides(cm)
			}
		},
		DeleteFunc: func(obj interface{}) {
			if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}
			if cm, ok := obj.(*corev1.ConfigMap); ok {
				m.RemoveOverrides(cm)
			}
		},
	})
}

// UpdateOverrides ingests a config map; a change to the effective document
// triggers a managed kafka resync.
func (m *Manager) UpdateOverrides(cm *corev1.ConfigMap) {
	if !strings.HasPrefix(cm.Name, strimziClusterOperatorPrefix) {
		return
	}

	data, ok := cm.Data[OperandsConfigKey]
	if !ok {
		m.mu.Lock()
		delete(m.overrides, cm.Name)
		m.mu.Unlock()
		m.resync()
		return
	}

	parsed := &OperandOverrides{}
	if err := yaml.Unmarshal([]byte(data), parsed); err != nil {
		m.log.Error(err, "Ignoring unparseable operand overrides", "name", cm.Name)
		return
	}

	m.log.Info("Updating operand overrides", "name", cm.Name)
	m.mu.Lock()
	old := m.overrides[cm.Name]
	m.overrides[cm.Name] = parsed
	m.mu.Unlock()

	if old == nil || !reflect.DeepEqual(old, parsed) {
		m.resync()
	}
}

// RemoveOverrides drops a config map's document and resyncs.
func (m *Manager) RemoveOverrides(cm *corev1.ConfigMap) {
	if !strings.HasPrefix(cm.Name, strimziClusterOperatorPrefix) {
		return
	}
	m.log.Info("Removing operand overrides", "name", cm.Name)
	m.mu.Lock()
	delete(m.overrides, cm.Name)
	m.mu.Unlock()
	m.resync()
}

func (m *Manager) resync() {
	if m.resyncer != nil {
		m.resyncer.ResyncManagedKafka()
	}
}

func (m *Manager) getOverrides(strimzi string) *OperandOverrides {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if doc, ok := m.overrides[strimzi]; ok {
		return doc
	}
	return &OperandOverrides{}
}

// GetCanaryOverride returns the canary override for a strimzi version.
func (m *Manager) GetCanaryOverride(strimzi string) CanaryOverride {
	return m.getOverrides(strimzi).Canary
}

// GetAdminServerOverride returns the admin server override.
func (m *Manager) GetAdminServerOverride(strimzi string) OperandOverride {
	return m.getOverrides(strimzi).AdminServer
}

// GetKafkaOverride returns the kafka override.
func (m *Manager) GetKafkaOverride(strimzi string) KafkaOverride {
	return m.getOverrides(strimzi).Kafka
}

// GetCanaryImage resolves the canary image.
func (m *Manager) GetCanaryImage(strimzi string) string {
	if img := m.image(m.getOverrides(strimzi).Canary.OperandOverride, strimzi, "canary"); img != "" {
		return img
	}
	return m.images.Canary
}

// GetCanaryInitImage resolves the canary init container image.
func (m *Manager) GetCanaryInitImage(strimzi string) string {
	if img := m.image(m.getOverrides(strimzi).Canary.Init, strimzi, "canary-init"); img != "" {
		return img
	}
	return m.images.CanaryInit
}

// GetAdminServerImage resolves the admin server image.
func (m *Manager) GetAdminServerImage(strimzi string) string {
	if img := m.image(m.getOverrides(strimzi).AdminServer, strimzi, "admin-server"); img != "" {
		return img
	}
	return m.images.AdminAPI
}

// GetKafkaImage resolves the kafka image; false when nothing is configured.
func (m *Manager) GetKafkaImage(strimzi string) (string, bool) {
	return m.optionalImage(m.getOverrides(strimzi).Kafka.OperandOverride, strimzi, "kafka", m.images.Kafka)
}

// GetZookeeperImage resolves the zookeeper image; false when nothing is
// configured.
func (m *Manager) GetZookeeperImage(strimzi string) (string, bool) {
	return m.optionalImage(m.getOverrides(strimzi).Zookeeper, strimzi, "zookeeper", m.images.Zookeeper)
}

// GetKafkaExporterImage resolves the kafka exporter image; false when nothing
// is configured.
func (m *Manager) GetKafkaExporterImage(strimzi string) (string, bool) {
	return m.optionalImage(m.getOverrides(strimzi).KafkaExporter, strimzi, "kafka-exporter", m.images.Exporter)
}

func (m *Manager) optionalImage(o OperandOverride, strimzi, component string, fallback *string) (string, bool) {
	if img := m.image(o, strimzi, component); img != "" {
		return img, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return "", false
}

// image resolves an override image, falling back to the related image the
// strimzi bundle declares. Overrides that are not valid image references are
// ignored.
func (m *Manager) image(o OperandOverride, strimzi, component string) string {
	if o.Image != "" {
		if _, err := name.ParseReference(o.Image); err != nil {
			m.log.Error(err, "Ignoring invalid operand image override", "component", component, "image", o.Image)
		} else {
			return o.Image
		}
	}
	if strimzi != "" && m.strimzi != nil {
		return m.strimzi.GetRelatedImage(strimzi, component)
	}
	return ""
}
