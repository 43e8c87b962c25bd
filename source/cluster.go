package source

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/yaml"
)

// Cluster loads the CustomResourceDefinitions installed in a cluster and
// renders them as a multi-document YAML stream.
type Cluster struct {
	client apiextensionsclientset.Interface
	// Kubeconfig is an explicit kubeconfig path. Empty uses the default
	// loading rules ($KUBECONFIG, then ~/.kube/config).
	Kubeconfig string
	// Context selects a kubeconfig context. Empty uses the current one.
	Context string
}

// NewCluster creates a [Cluster] source that talks to client.
func NewCluster(client apiextensionsclientset.Interface) *Cluster {
	return &Cluster{client: client}
}

// Load lists the definitions. The client is built from the kubeconfig on
// first use.
func (c *Cluster) Load(ctx context.Context) ([]byte, error) {
	if c.client == nil {
		client, err := c.newClient()
		if err != nil {
			return nil, err
		}

		c.client = client
	}

	list, err := c.client.ApiextensionsV1().CustomResourceDefinitions().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list customresourcedefinitions: %w", err)
	}

	// An empty list is still a successful read; keep the stream non-empty so
	// it reports no definitions rather than empty input.
	if len(list.Items) == 0 {
		out, err := yaml.Marshal(&apiextensionsv1.CustomResourceDefinitionList{
			TypeMeta: metav1.TypeMeta{
				APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
				Kind:       "CustomResourceDefinitionList",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal empty list: %w", err)
		}

		return out, nil
	}

	var buf bytes.Buffer

	for i := range list.Items {
		item := list.Items[i].DeepCopy()
		item.TypeMeta = metav1.TypeMeta{
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		}
		item.ManagedFields = nil

		out, err := yaml.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", item.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(out)
	}

	return buf.Bytes(), nil
}

func (c *Cluster) newClient() (apiextensionsclientset.Interface, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if c.Kubeconfig != "" {
		rules.ExplicitPath = c.Kubeconfig
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		rules,
		&clientcmd.ConfigOverrides{CurrentContext: c.Context},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}

	client, err := apiextensionsclientset.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return client, nil
}

// Contexts returns the context names in the kubeconfig, for completion.
func Contexts(kubeconfig string) ([]string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}

	raw, err := rules.Load()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}

	names := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

func (c *Cluster) String() string {
	if c.Context != "" {
		return "cluster " + c.Context
	}

	return "cluster"
}
