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

package operator

import (
	"flag"
	"os"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	operatorclient "github.com/openshift/client-go/operator/clientset/versioned"
	routeclient "github.com/openshift/client-go/route/clientset/versioned"

	"github.com/managed-kafka/kas-ingress-operator/internal/config"
	"github.com/managed-kafka/kas-ingress-operator/internal/informer"
	"github.com/managed-kafka/kas-ingress-operator/internal/ingress"
	"github.com/managed-kafka/kas-ingress-operator/internal/override"
)

var setupLog = ctrl.Log.WithName("setup")

// Run starts the ingress capacity operator: the informer caches, the ingress
// controller reconciler, and the operand override manager, all under one
// controller-runtime manager providing leader election, health probes and the
// metrics endpoint.
func Run(args []string) {
	cfg, remaining, err := config.Load(args)
	if err != nil {
		// logging is not configured yet
		_, _ = os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	var metricsAddr string
	var probeAddr string
	var enableLeaderElection bool
	flagSet := flag.NewFlagSet("kas-ingress-operator", flag.ExitOnError)
	flagSet.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to.")
	flagSet.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flagSet.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	opts := zap.Options{
		Development: false,
	}
	opts.BindFlags(flagSet)
	if err := flagSet.Parse(remaining); err != nil {
		os.Exit(1)
	}

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	restConfig := ctrl.GetConfigOrDie()

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "kas-ingress-operator-leader.managedkafka.bf2.org",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create kubernetes client")
		os.Exit(1)
	}
	operatorClient, err := operatorclient.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create openshift operator client")
		os.Exit(1)
	}
	routeClient, err := routeclient.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create openshift route client")
		os.Exit(1)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create dynamic client")
		os.Exit(1)
	}

	informerManager := informer.NewManager(ctrl.Log.WithName("informers"),
		kubeClient, operatorClient, routeClient, dynamicClient,
		informer.Options{WatchRouterDeployments: cfg.IngressController.RouterResources != nil})

	ingressManager, err := ingress.NewManager(ctrl.Log.WithName("ingress"),
		cfg.IngressController, kubeClient, operatorClient, informerManager, informerManager)
	if err != nil {
		setupLog.Error(err, "unable to create ingress manager")
		os.Exit(1)
	}

	// the strimzi bundle manager lives with the fleet manager; with none
	// passed here, related image lookups resolve to the configured defaults
	overrideManager := override.NewManager(ctrl.Log.WithName("override"), cfg.Images, nil, informerManager)
	if err := overrideManager.RegisterHandlers(informerManager.StrimziConfigMaps()); err != nil {
		setupLog.Error(err, "unable to register override manager handlers")
		os.Exit(1)
	}

	if err := mgr.Add(informerManager); err != nil {
		setupLog.Error(err, "unable to add informer manager")
		os.Exit(1)
	}
	if err := mgr.Add(ingressManager); err != nil {
		setupLog.Error(err, "unable to add ingress manager")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting operator manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
