package dto

import "github.com/porthorian/accountgate/pkg/sanitize"

type LinuxServer struct {
	Server          int     `json:"server"`
	Hostname        string  `json:"hostname"`
	DaemonBind      string  `json:"daemon_bind"`
	TimeZone        string  `json:"time_zone"`
	OperatingSystem string  `json:"operating_system"`
	Architecture    string  `json:"architecture"`
	FailoverServer  *string `json:"failover_server,omitempty"`
	Description     string  `json:"description"`
}

type LinuxDaemonACL struct {
	ID     int    `json:"id"`
	Server string `json:"server"`
	Host   string `json:"host"`
}

// Register installs the field sets of every transfer object in this
// package.
func Register(r *sanitize.Registry) error {
	if err := sanitize.Register(r,
		sanitize.StringField("hostname", func(s *LinuxServer) *string { return &s.Hostname }),
		sanitize.StringField("daemon_bind", func(s *LinuxServer) *string { return &s.DaemonBind }),
		sanitize.StringField("time_zone", func(s *LinuxServer) *string { return &s.TimeZone }),
		sanitize.StringField("operating_system", func(s *LinuxServer) *string { return &s.OperatingSystem }),
		sanitize.StringField("architecture", func(s *LinuxServer) *string { return &s.Architecture }),
		sanitize.Field[*LinuxServer]{
			Name: "failover_server",
			Get: func(s *LinuxServer) (string, error) {
				if s.FailoverServer == nil {
					return "", nil
				}
				return *s.FailoverServer, nil
			},
			Set: func(s *LinuxServer, value string) error {
				s.FailoverServer = &value
				return nil
			},
		},
		sanitize.StringField("description", func(s *LinuxServer) *string { return &s.Description }),
	); err != nil {
		return err
	}

	return sanitize.Register(r,
		sanitize.StringField("server", func(a *LinuxDaemonACL) *string { return &a.Server }),
		sanitize.StringField("host", func(a *LinuxDaemonACL) *string { return &a.Host }),
	)
}
