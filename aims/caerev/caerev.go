// Package caerev wires the CAE-REV (rehabilitation exercises validation)
// workflow: its catalog entries, channel layout and metadata documents.
package caerev

import (
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aims/sensors"
	"github.com/goliatone/go-aif/aims/templimit"
	"github.com/goliatone/go-aif/catalog"
)

const (
	AIFName  = "demo"
	Workflow = "CAE-REV"

	// The mic and motion channels have no producer here; they are reserved
	// for the VolumePeaksAnalysis and MotionRecognitionAnalysis AIMs.
	MicBufferDataChannel = "MicBufferDataChannel"
	MicPeakDataChannel   = "MicPeakDataChannel"
	MotionDataChannel    = "MotionDataChannel"
)

// Channels is the channel layout shared by every CAE-REV AIM.
var Channels = []string{
	sensors.Channel,
	MicBufferDataChannel,
	MicPeakDataChannel,
	MotionDataChannel,
}

type Options struct {
	Sampler     sensors.Sampler
	Rate        time.Duration
	TempLimit   templimit.Options
	MessageSize int
	// Disabled AIMs are vetoed after creation and reported as skipped.
	Disabled []string
}

func Definition(messageSize int) catalog.WorkflowDefinition {
	return catalog.WorkflowDefinition{
		Name:        Workflow,
		Channels:    append([]string(nil), Channels...),
		MessageSize: messageSize,
	}
}

// Register adds the CAE-REV AIMs and workflow definition to cat.
func Register(cat *catalog.Catalog, opts Options) error {
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[name] = true
	}
	entries := []catalog.Entry{
		sensors.Entry(opts.Sampler, opts.Rate),
		templimit.Entry(opts.TempLimit),
	}
	for _, entry := range entries {
		if disabled[entry.Name] {
			entry.Enabled = func() bool { return false }
		}
		if err := cat.Register(entry); err != nil {
			return err
		}
	}
	return cat.RegisterWorkflow(Definition(opts.MessageSize))
}

// Document is one metadata document of the workflow.
type Document struct {
	Kind aif.Kind
	Name string
	Data []byte
}

// Documents returns the AIF, AIW and AIM metadata of the workflow.
func Documents() []Document {
	return []Document{
		{Kind: aif.KindAIF, Name: AIFName, Data: []byte(`{"title": "` + AIFName + `"}`)},
		{Kind: aif.KindAIW, Name: Workflow, Data: []byte(aiwDocument)},
		{Kind: aif.KindAIM, Name: sensors.Name, Data: []byte(`{"title": "` + sensors.Name + `"}`)},
		{Kind: aif.KindAIM, Name: templimit.Name, Data: []byte(`{"title": "` + templimit.Name + `"}`)},
	}
}

const aiwDocument = `{
  "title": "CAE-REV",
  "Topology": [
    {"Output": {"AIMName": "AIM_TEMP_LIMIT", "PortName": "SensorsDataChannel"}}
  ],
  "SubAIMs": [
    {"Identifier": {"Specification": {"AIM": "ControlUnitSensorsReading"}}},
    {"Identifier": {"Specification": {"AIM": "AIM_TEMP_LIMIT"}}}
  ]
}`
