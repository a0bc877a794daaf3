package bootstrap

import (
	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/device/sshcli"
	"github.com/newtron-network/newtboot/pkg/topology"
)

// DriverFactory creates the driver for one router.
type DriverFactory func(r *topology.Router) (device.Driver, error)

// SSHDrivers returns a factory for SSH CLI drivers keyed by the router's
// family. A router attr ssh_port overrides the port.
func SSHDrivers(base ...sshcli.Option) DriverFactory {
	return func(r *topology.Router) (device.Driver, error) {
		opts := append([]sshcli.Option(nil), base...)
		port, ok, err := r.IntAttr("ssh_port")
		if err != nil {
			return nil, err
		}
		if ok {
			opts = append(opts, sshcli.WithPort(port))
		}
		return sshcli.New(r.Family(), opts...)
	}
}
