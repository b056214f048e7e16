package tools

import (
	"context"
	"strings"
)

// EmergencyNumbers is appended to every matched emergency guidance.
const EmergencyNumbers = "\n\nEmergency Numbers India:\n- Ambulance: 102 or 108\n- Emergency: 112"

const redFlagChecklist = `Based on symptoms, if any of these apply, seek immediate care:
- Severe pain (chest, abdomen, head)
- Difficulty breathing
- Heavy bleeding
- Loss of consciousness
- High fever with confusion
- Severe allergic reaction

Call 102, 108, or 112 for emergency services in India.`

// emergencyTable is checked in order; the first keyword found wins.
var emergencyTable = []struct {
	keyword  string
	guidance string
}{
	{"chest pain", "🚨 EMERGENCY: Call ambulance immediately (102/108). This could be a heart attack."},
	{"breathing", "🚨 EMERGENCY: Seek immediate medical help. Difficulty breathing requires urgent care."},
	{"severe bleeding", "🚨 EMERGENCY: Apply pressure to wound and call for emergency help immediately."},
	{"stroke", "🚨 EMERGENCY: Call 102/108 immediately. Remember FAST: Face drooping, Arm weakness, Speech difficulty, Time to call."},
	{"snake bite", "🚨 EMERGENCY: Keep calm, immobilize affected area, go to nearest hospital immediately."},
	{"poisoning", "🚨 EMERGENCY: Call poison control or go to emergency room immediately."},
	{"severe burn", "🚨 EMERGENCY: Cool with water, cover with clean cloth, seek immediate medical care."},
	{"unconscious", "🚨 EMERGENCY: Call 102/108, check breathing, put in recovery position if breathing."},
}

// ClassifyEmergency matches text against the emergency table,
// case-insensitively. On a match it returns the guidance followed by the
// emergency numbers.
func ClassifyEmergency(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, e := range emergencyTable {
		if strings.Contains(lower, e.keyword) {
			return e.guidance + EmergencyNumbers, true
		}
	}
	return "", false
}

// EmergencyTool gives immediate guidance for serious symptoms.
type EmergencyTool struct{}

// NewEmergencyTool creates the emergency guidance tool.
func NewEmergencyTool() *EmergencyTool { return &EmergencyTool{} }

func (t *EmergencyTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: NameEmergency,
		Description: "Provide immediate guidance for emergency symptoms and when to seek urgent care. " +
			"Use this for serious symptoms like chest pain, severe bleeding or breathing problems.",
		Parameters: []ToolParameter{
			{Name: "symptom", ParamType: TypeString, Description: "The emergency symptom being experienced", Required: true},
		},
	}
}

func (t *EmergencyTool) Execute(_ context.Context, args Args) (ToolResult, error) {
	if guidance, ok := ClassifyEmergency(args.String("symptom")); ok {
		return SuccessResult(guidance), nil
	}
	return SuccessResult(redFlagChecklist), nil
}
