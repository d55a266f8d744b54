package service

import "alcyxob/fitness-coach/internal/domain"

// Fixed texts of the consultation flow. Clients match on some of these, so
// change them with care.
const (
	CoachInstruction   = "You are a fitness coach. Your job is to remember past conversations and ask follow-up questions based on user responses."
	TrainerInstruction = "You are a personal trainer generating a workout plan based on the consultation."

	CannedFollowUp = "I see you're comfortable with high-intensity workouts. Let's get into the details. How many days a week can you commit to?"

	ApologyMessage      = "Sorry, there was an issue with the response. Could you try again?"
	PlanReadyMessage    = "Your workout plan has been generated. You can now view it in your calendar."
	PlanFailedMessage   = "An error occurred while generating the workout plan."
	profilePromptPrefix = "User profile: "
	resultsPromptPrefix = "Consultation results: "
)

// consultationMessages is the oracle request for one consultation turn: the
// coach instruction followed by the whole context summary as one user message.
func consultationMessages(contextSummary string) []domain.Message {
	return []domain.Message{
		domain.SystemMessage(CoachInstruction),
		domain.UserMessage(contextSummary),
	}
}

// planMessages is the oracle request for plan generation. Both payloads are
// already JSON encoded.
func planMessages(profileJSON, consultationJSON []byte) []domain.Message {
	return []domain.Message{
		domain.SystemMessage(TrainerInstruction),
		domain.UserMessage(profilePromptPrefix + string(profileJSON)),
		domain.UserMessage(resultsPromptPrefix + string(consultationJSON)),
	}
}
