/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package v1beta2 models the subset of the strimzi Kafka custom resource the
// ingress tier reads: broker replica counts, listener configuration, and the
// broker config map carrying the static quota callback values. The resource
// is owned by the strimzi cluster operator; this operator only observes it.
package v1beta2

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// KafkaKind is the kind recorded in owner references pointing at a strimzi
// Kafka cluster.
const KafkaKind = "Kafka"

// GenericKafkaListenerConfiguration carries the listener options this
// operator consumes.
type GenericKafkaListenerConfiguration struct {
	// MaxConnections is the per-broker connection limit on the listener.
	MaxConnections *int32 `json:"maxConnections,omitempty"`
}

// GenericKafkaListener is a single configured kafka listener.
type GenericKafkaListener struct {
	Name          string                             `json:"name"`
	Port          int32                              `json:"port,omitempty"`
	Type          string                             `json:"type,omitempty"`
	TLS           bool                               `json:"tls,omitempty"`
	Configuration *GenericKafkaListenerConfiguration `json:"configuration,omitempty"`
}

// KafkaClusterSpec is the broker part of the Kafka spec.
type KafkaClusterSpec struct {
	Replicas  int32                  `json:"replicas"`
	Listeners []GenericKafkaListener `json:"listeners,omitempty"`
	// Config is the schemaless broker configuration; quota values live under
	// the static quota callback keys.
	Config map[string]interface{} `json:"config,omitempty"`
}

// KafkaSpec is the observed Kafka custom resource spec.
type KafkaSpec struct {
	Kafka KafkaClusterSpec `json:"kafka"`
}

// +kubebuilder:object:root=true

// Kafka is a strimzi-managed kafka cluster, consumed read-only.
type Kafka struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec *KafkaSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// KafkaList contains a list of Kafka.
type KafkaList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Kafka `json:"items"`
}

// Listener returns the listener with the given name, or nil.
func (k *Kafka) Listener(name string) *GenericKafkaListener {
	if k.Spec == nil {
		return nil
	}
	for i := range k.Spec.Kafka.Listeners {
		if k.Spec.Kafka.Listeners[i].Name == name {
			return &k.Spec.Kafka.Listeners[i]
		}
	}
	return nil
}

// Replicas returns the broker replica count.
func (k *Kafka) Replicas() int32 {
	if k.Spec == nil {
		return 0
	}
	return k.Spec.Kafka.Replicas
}
