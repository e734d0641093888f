package rcluster

import "errors"

var (
	// ErrInvalidClusterCommand is returned when a command has no
	// extractable routing key and is not a fan-out operation.
	ErrInvalidClusterCommand = errors.New("rcluster: command has no routable key")

	// ErrNoConnection is returned when a request exhausts Config.RequestTTL
	// without a successful reply, whether because the cluster has no
	// slot map yet or because of repeated transport failures.
	ErrNoConnection = errors.New("rcluster: no connection")

	// ErrResourceBusy is returned when a compare-and-swap transaction
	// exceeds Config.OLTransactionTTL attempts due to contention on the
	// watched key.
	ErrResourceBusy = errors.New("rcluster: resource busy")

	// ErrUnknownCluster is returned by the package-level dispatcher
	// functions when no cluster is registered under the given name.
	ErrUnknownCluster = errors.New("rcluster: unknown cluster")

	// ErrClusterNameTaken is returned by Connect when ClusterName is
	// already registered.
	ErrClusterNameTaken = errors.New("rcluster: cluster name already connected")

	errAllNodesFailed = errors.New("rcluster: all nodes failed to answer CLUSTER SLOTS")
)
