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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ManagedKafkaKind is the kind recorded in owner references pointing at a
// ManagedKafka instance.
const ManagedKafkaKind = "ManagedKafka"

// EndpointSpec describes the externally visible endpoint of a managed kafka.
type EndpointSpec struct {
	// BootstrapServerHost is the host clients bootstrap against; broker
	// route hosts are derived from it.
	BootstrapServerHost string `json:"bootstrapServerHost,omitempty"`
}

// ManagedKafkaSpec is the subset of the managed kafka spec the ingress tier
// consumes.
type ManagedKafkaSpec struct {
	Endpoint EndpointSpec `json:"endpoint,omitempty"`
}

// +kubebuilder:object:root=true

// ManagedKafka is an orchestrated kafka cluster instance.
type ManagedKafka struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ManagedKafkaSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// ManagedKafkaList contains a list of ManagedKafka.
type ManagedKafkaList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ManagedKafka `json:"items"`
}

// ManagedKafkaRoute is a projected external route endpoint for a managed
// kafka: the route name, the host prefix under the router domain, and the
// router domain itself.
type ManagedKafkaRoute struct {
	Name   string `json:"name,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Router string `json:"router,omitempty"`
}

func init() {
	SchemeBuilder.Register(&ManagedKafka{}, &ManagedKafkaList{})
}
