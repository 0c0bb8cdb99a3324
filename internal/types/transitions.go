package types

// Status transitions are closed per entity: terminal error states are
// reachable from the in-flight state only, and a manual retry is the single
// way back into an in-flight state.

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusUploaded:   {DocumentStatusProcessing},
	DocumentStatusProcessing: {DocumentStatusReady, DocumentStatusError},
	DocumentStatusError:      {DocumentStatusProcessing},
}

func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var studyKitTransitions = map[StudyKitStatus][]StudyKitStatus{
	StudyKitStatusProcessing: {StudyKitStatusReady, StudyKitStatusError},
	StudyKitStatusReady:      {StudyKitStatusProcessing},
	StudyKitStatusError:      {StudyKitStatusProcessing},
}

func (s StudyKitStatus) CanTransitionTo(next StudyKitStatus) bool {
	for _, allowed := range studyKitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var examTransitions = map[ExamStatus][]ExamStatus{
	ExamStatusDraft:      {ExamStatusGenerating},
	ExamStatusGenerating: {ExamStatusReady, ExamStatusError},
	ExamStatusReady:      {ExamStatusCompleted, ExamStatusGenerating},
	ExamStatusCompleted:  {ExamStatusCompleted, ExamStatusGenerating},
	ExamStatusError:      {ExamStatusGenerating},
}

func (s ExamStatus) CanTransitionTo(next ExamStatus) bool {
	for _, allowed := range examTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusProcessing: {AssignmentStatusCompleted, AssignmentStatusError},
	AssignmentStatusCompleted:  {AssignmentStatusProcessing},
	AssignmentStatusError:      {AssignmentStatusProcessing},
}

func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, allowed := range assignmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
