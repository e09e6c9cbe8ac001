package engine

import (
	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/resource"
)

// Observer is the presentation side of the engine. Methods are called one at
// a time from engine goroutines and must not block on the Engine.
type Observer interface {
	OnStatusChange(message string, isError bool)
	OnResourcesUpdated(resources []resource.Resource)
	OnViewUpdated(records []logs.Record)
	OnLabelsUpdated(labels []string)
	OnExportReady(artifact logs.Artifact)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnStatusChange(string, bool)             {}
func (NopObserver) OnResourcesUpdated([]resource.Resource) {}
func (NopObserver) OnViewUpdated([]logs.Record)            {}
func (NopObserver) OnLabelsUpdated([]string)               {}
func (NopObserver) OnExportReady(logs.Artifact)            {}
