package audit

type RecordDTO struct {
	ActorID      string `validate:"max=36"`
	ActorEmail   string `validate:"max=254"`
	ActionType   string `validate:"required,max=50"`
	ResourceName string `validate:"required,max=100"`
	ResourceID   string `validate:"max=36"`
	OriginIP     string `validate:"max=45"`
	Details      string
}
