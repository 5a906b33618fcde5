package workflow

import "lector/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// The intake lane handles cheap text work; the synthesis lane owns the speech
// engine and everything downstream of it.
func (m *Manager) ConfigureStages(set StageSet) {
	intake := &laneState{kind: laneIntake, name: "intake", notificationsEnabled: true}
	synthesis := &laneState{kind: laneSynthesis, name: "synthesis", notificationsEnabled: false}

	if set.Planner != nil {
		intake.stages = append(intake.stages, pipelineStage{
			name:             "planner",
			handler:          set.Planner,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusPlanning,
			doneStatus:       queue.StatusPlanned,
		})
	}
	if set.Synthesizer != nil {
		synthesis.stages = append(synthesis.stages, pipelineStage{
			name:             "synthesizer",
			handler:          set.Synthesizer,
			startStatus:      queue.StatusPlanned,
			processingStatus: queue.StatusSynthesizing,
			doneStatus:       queue.StatusSynthesized,
		})
	}
	if set.Exporter != nil {
		synthesis.stages = append(synthesis.stages, pipelineStage{
			name:             "exporter",
			handler:          set.Exporter,
			startStatus:      queue.StatusSynthesized,
			processingStatus: queue.StatusExporting,
			doneStatus:       queue.StatusExported,
		})
	}
	if set.Organizer != nil {
		synthesis.stages = append(synthesis.stages, pipelineStage{
			name:             "organizer",
			handler:          set.Organizer,
			startStatus:      queue.StatusExported,
			processingStatus: queue.StatusOrganizing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(intake.stages) > 0 {
		intake.finalize()
		lanes[intake.kind] = intake
		order = append(order, intake.kind)
	}
	if len(synthesis.stages) > 0 {
		synthesis.finalize()
		lanes[synthesis.kind] = synthesis
		order = append(order, synthesis.kind)
	}

	for _, lane := range lanes {
		if lane == nil {
			continue
		}
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
