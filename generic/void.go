package generic

// Void is a zero-size placeholder value, used for set members and Result[Void].
type Void struct{}

func NewVoid() Void {
	return Void{}
}
