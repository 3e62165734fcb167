package zap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/models"
)

var paragraphTagRe = regexp.MustCompile(`</?p>`)

type zapReport struct {
	Sites *[]zapSite `json:"site"`
}

type zapSite struct {
	Name   string     `json:"@name"`
	Host   string     `json:"@host"`
	Alerts []zapAlert `json:"alerts"`
}

type zapAlert struct {
	PluginID  string        `json:"pluginid"`
	Alert     string        `json:"alert"`
	Name      string        `json:"name"`
	RiskCode  RiskCode      `json:"riskcode"`
	Desc      string        `json:"desc"`
	Solution  string        `json:"solution"`
	Instances []zapInstance `json:"instances"`
}

type zapInstance struct {
	URI       string `json:"uri"`
	Method    string `json:"method"`
	Param     string `json:"param"`
	Attack    string `json:"attack"`
	Evidence  string `json:"evidence"`
	OtherInfo string `json:"otherinfo"`
}

// RiskCode accepts both the string ("2") and numeric (2) encodings ZAP has used.
type RiskCode int

func (r *RiskCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid riskcode %s", string(data))
	}
	*r = RiskCode(code)
	return nil
}

// Result is the outcome of parsing one ZAP report.
type Result struct {
	Records  []models.Vulnerability
	Examined int
}

// Parse converts a ZAP JSON report into canonical records, keeping alerts whose
// riskcode is at or above threshold.
func Parse(raw []byte, threshold int) (*Result, error) {
	var report zapReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, internalerrors.Parse("parse_zap", fmt.Errorf("invalid zap json: %w", err))
	}

	if report.Sites == nil {
		return nil, internalerrors.Parse("parse_zap", errors.New("invalid zap json: missing site list"))
	}
	sites := *report.Sites

	host := ""
	if len(sites) > 0 {
		host = sites[0].Host
	}

	result := &Result{}
	for _, site := range sites {
		for _, alert := range site.Alerts {
			result.Examined++
			if int(alert.RiskCode) < threshold {
				continue
			}

			name := alert.Name
			if strings.TrimSpace(name) == "" {
				name = alert.Alert
			}
			// Unnamed alerts keep an empty identity and are dropped by validation.
			identity := ""
			if strings.TrimSpace(name) != "" {
				identity = strings.ReplaceAll(name+": "+host, "-", "")
			}

			result.Records = append(result.Records, models.Vulnerability{
				Identity:    identity,
				Summary:     identity,
				Description: describeAlert(alert),
				RiskCode:    int(alert.RiskCode),
				Source:      models.SourceZap,
			})
		}
	}

	return result, nil
}

func describeAlert(alert zapAlert) string {
	var b strings.Builder
	b.WriteString(paragraphTagRe.ReplaceAllString(alert.Desc+"\n\nSolution:\n"+alert.Solution, ""))
	b.WriteString("\n")
	b.WriteString(describeInstances(alert.Instances))
	return b.String()
}

func describeInstances(instances []zapInstance) string {
	var b strings.Builder
	b.WriteString("\nInstances:\n")
	for _, inst := range instances {
		fmt.Fprintf(&b, "URI: %s\nMethod: %s\nParam: %s\nAttack: %s\nEvidence: %s\nOtherInfo: %s\n\n",
			inst.URI, inst.Method, inst.Param, inst.Attack, inst.Evidence, inst.OtherInfo)
	}
	return b.String()
}
