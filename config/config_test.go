package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{name: "exporter only", input: "exporter", want: map[ServiceMode]bool{ServiceModeExporter: true}},
		{name: "both", input: "exporter,http", want: map[ServiceMode]bool{ServiceModeExporter: true, ServiceModeHTTP: true}},
		{name: "whitespace tolerated", input: " exporter , http ", want: map[ServiceMode]bool{ServiceModeExporter: true, ServiceModeHTTP: true}},
		{name: "empty", input: "", wantErr: true},
		{name: "only commas", input: ",,", wantErr: true},
		{name: "unknown mode", input: "exporter,worker", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppConfigServiceToggles(t *testing.T) {
	cfg := AppConfig{Services: "exporter"}
	assert.True(t, cfg.IsExporterEnabled())
	assert.False(t, cfg.IsHTTPServerEnabled())

	cfg.Services = "http,exporter"
	assert.True(t, cfg.IsExporterEnabled())
	assert.True(t, cfg.IsHTTPServerEnabled())

	cfg.Services = "bogus"
	assert.False(t, cfg.IsExporterEnabled())
}

func TestExporterConfigSanitize(t *testing.T) {
	e := ExporterConfig{Interval: -1, BatchSize: 0, LockTTL: time.Second, RunRetention: 0, QueryTimeout: 0}
	e.Sanitize()

	assert.Equal(t, time.Second, e.Interval)
	assert.Equal(t, 1, e.BatchSize)
	assert.Equal(t, time.Minute, e.LockTTL)
	assert.Equal(t, time.Hour, e.RunRetention)
	assert.Equal(t, 60*time.Second, e.QueryTimeout)
}

func TestSinksConfigSanitize(t *testing.T) {
	s := SinksConfig{
		FTP:  FTPSinkConfig{Host: "  ftp.example.com  ", User: " uploader ", Port: 0},
		HTTP: HTTPSinkConfig{URL: "  https://example.com/rows  "},
	}
	s.Sanitize()

	assert.Equal(t, "ftp.example.com", s.FTP.Host)
	assert.Equal(t, "uploader", s.FTP.User)
	assert.Equal(t, 21, s.FTP.Port)
	assert.Equal(t, "https://example.com/rows", s.HTTP.URL)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.True(t, s.FTP.Configured())
	assert.True(t, s.HTTP.Configured())
}

func TestMetricsConfigSanitize(t *testing.T) {
	m := MetricsConfig{Enabled: true, StatsdAddress: "   ", Prefix: ""}
	m.Sanitize()

	assert.False(t, m.IsEnabled())
	assert.Equal(t, "rowboat", m.Prefix)

	m = MetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125", Prefix: "custom"}
	m.Sanitize()
	assert.True(t, m.IsEnabled())
	assert.Equal(t, "custom", m.Prefix)
}

func TestHTTPConfigSanitize(t *testing.T) {
	h := HTTPConfig{Port: 0}
	h.Sanitize()
	assert.Equal(t, 8080, h.Port)
	assert.Equal(t, 10*time.Second, h.ReadTimeout)
}
