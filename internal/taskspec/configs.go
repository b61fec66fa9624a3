package taskspec

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Artifact object names under the per-deployment prefix.
const (
	ProxyConfigArtifact  = "nginx.conf"
	BrokerConfigArtifact = "broker.yaml"
)

// BrokerConfig is the broker's YAML configuration. Building it as a
// typed struct and marshalling keeps caller-supplied values out of any
// hand-assembled text.
type BrokerConfig struct {
	Interval struct {
		AutoSettleBufferTime     int `yaml:"autoSettleBufferTime"`
		ForceSettlementProcessor int `yaml:"forceSettlementProcessor"`
		SettlementProcessor      int `yaml:"settlementProcessor"`
	} `yaml:"interval"`
	Networks map[string]BrokerNetwork `yaml:"networks"`
	Service  BrokerService            `yaml:"service"`
	Database struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"database"`
	Settlement BrokerSettlement `yaml:"settlement"`
}

type BrokerNetwork struct {
	URL                 string   `yaml:"url"`
	ChainID             int64    `yaml:"chainID"`
	PrivateKeys         []string `yaml:"privateKeys"`
	TransactionLimit    int64    `yaml:"transactionLimit"`
	GasEstimationBuffer int64    `yaml:"gasEstimationBuffer"`
}

type BrokerService struct {
	ServingURL    string `yaml:"servingUrl"`
	TargetURL     string `yaml:"targetUrl"`
	InputPrice    int    `yaml:"inputPrice"`
	OutputPrice   int    `yaml:"outputPrice"`
	Type          string `yaml:"type"`
	Model         string `yaml:"model"`
	Verifiability string `yaml:"verifiability"`
}

type BrokerSettlement struct {
	Enabled  bool `yaml:"enabled"`
	ZKProver struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"zkProver"`
}

// RenderBrokerConfig produces the broker configuration blob for a
// deployment.
func RenderBrokerConfig(p Params) ([]byte, error) {
	cfg := BrokerConfig{}
	cfg.Interval.AutoSettleBufferTime = 60
	cfg.Interval.ForceSettlementProcessor = 600
	cfg.Interval.SettlementProcessor = 300
	cfg.Networks = map[string]BrokerNetwork{
		"ethereum0g": {
			URL:                 p.ChainRPCURL,
			ChainID:             p.ChainID,
			PrivateKeys:         []string{p.WalletKey},
			TransactionLimit:    1000000,
			GasEstimationBuffer: 10000,
		},
	}
	cfg.Service = BrokerService{
		ServingURL:    "https://" + p.Hostname,
		TargetURL:     "http://localhost:8000",
		InputPrice:    1,
		OutputPrice:   1,
		Type:          "chatbot",
		Model:         p.ModelIdentifier,
		Verifiability: p.VerificationMethod,
	}
	cfg.Settlement.Enabled = true
	cfg.Settlement.ZKProver.Enabled = true

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal broker config: %w", err)
	}
	return out, nil
}

var proxyConfigTemplate = template.Must(template.New("nginx").Parse(`events { worker_connections 1024; }
http {
    server {
        listen 80;
        server_name {{.Hostname}};

        location /health {
            return 200 '{"status":"healthy","service":"nginx-proxy","deployment":"{{js .DeploymentID}}"}';
            add_header Content-Type application/json;
        }

        location /0g/status {
            return 200 '{"wallet":"{{js .OwnerAddress}}","model":"{{js .ModelIdentifier}}","verification":"{{js .VerificationMethod}}"}';
            add_header Content-Type application/json;
        }

        location / {
            proxy_pass http://127.0.0.1:3080;
            proxy_set_header Host $host;
            proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        }
    }
}
`))

// RenderProxyConfig produces the reverse-proxy configuration blob for a
// deployment.
func RenderProxyConfig(p Params) ([]byte, error) {
	var buf bytes.Buffer
	if err := proxyConfigTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render proxy config: %w", err)
	}
	return buf.Bytes(), nil
}
