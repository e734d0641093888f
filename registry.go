package rcluster

import "sync"

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Cluster)
)

func registerCluster(c *Cluster) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[c.name]; exists {
		return ErrClusterNameTaken
	}
	registry[c.name] = c
	return nil
}

// Lookup returns the cluster previously registered under name by
// Connect.
func Lookup(name string) (*Cluster, error) {
	registryMu.Lock()
	c, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, ErrUnknownCluster
	}
	return c, nil
}

// Disconnect removes the cluster registered under name and drains all of
// its worker pools. It is a no-op if name is not registered.
func Disconnect(name string) {
	registryMu.Lock()
	c, ok := registry[name]
	delete(registry, name)
	registryMu.Unlock()

	if ok {
		c.close()
	}
}
