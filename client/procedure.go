package client

import (
	"context"
	"strings"

	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Procedure calls a stored procedure or function. Output parameters and
// the function result are available after a successful Execute.
type Procedure struct {
	session   *Session
	source    string
	savepoint *bool

	failed     bool
	message    string
	returns    string
	names      []string
	values     map[string]interface{}
	parameters map[string]*ColumnDefinition
}

// NewProcedure returns a call of source on session.
func NewProcedure(session *Session, source string) (*Procedure, error) {
	if session == nil {
		return nil, newUsageError(nil, messages.SessionIsNull, "Procedure")
	}
	if source == "" {
		return nil, newUsageError(session.catalog, messages.SourceIsNull, "Procedure")
	}
	return &Procedure{
		session:    session,
		source:     source,
		values:     make(map[string]interface{}),
		parameters: make(map[string]*ColumnDefinition),
	}, nil
}

// Source returns the procedure name.
func (p *Procedure) Source() string { return p.source }

// Failed reports whether the last call was rejected.
func (p *Procedure) Failed() bool { return p.failed }

// ErrorMessage returns the server message of the rejection.
func (p *Procedure) ErrorMessage() string { return p.message }

// UseSavePoint requests statement level rollback on failure.
func (p *Procedure) UseSavePoint(flag bool) *Procedure {
	p.savepoint = protocol.Bool(flag)
	return p
}

// Value returns the output parameter name, or nil.
func (p *Procedure) Value(name string) interface{} {
	return p.values[strings.ToLower(name)]
}

// Parameter returns the definition of the output parameter name.
func (p *Procedure) Parameter(name string) (*ColumnDefinition, bool) {
	def, ok := p.parameters[strings.ToLower(name)]
	return def, ok
}

// Names returns the output parameter names in the order the server sent
// them, lowercased.
func (p *Procedure) Names() []string { return p.names }

// ReturnValue names the output parameter holding a function's result.
func (p *Procedure) ReturnValue() string { return p.returns }

// Execute calls the procedure with params. A rejected call returns false
// with no error.
func (p *Procedure) Execute(ctx context.Context, params ...protocol.NameValue) (bool, error) {
	args := protocol.ExecuteArgs{Savepoint: p.savepoint}
	for _, param := range params {
		args.BindValues = append(args.BindValues, protocol.NameValue{Name: param.Name, Value: mapper.Normalize(param.Value)})
	}

	resp, err := p.session.Invoke(ctx, &protocol.CallRequest{
		Call: protocol.CallInvoke{
			Invoke:  protocol.InvokeExecute,
			Source:  p.source,
			Session: p.session.SessionID(),
			Execute: args,
		},
	})
	if err != nil {
		return false, err
	}

	p.failed = !resp.Success
	p.message = resp.Message
	if !resp.Success {
		return false, nil
	}

	p.names = make([]string, 0, len(resp.Values))
	p.values = make(map[string]interface{}, len(resp.Values))
	p.parameters = make(map[string]*ColumnDefinition, len(resp.Values))
	for _, v := range resp.Values {
		def := &ColumnDefinition{
			Name:      v.Name,
			Type:      v.Type,
			SQLType:   v.SQLType,
			Precision: v.Precision,
		}
		value := v.Value
		if def.IsTemporal() {
			value = mapper.CoerceTemporal(value)
		}
		key := strings.ToLower(v.Name)
		p.names = append(p.names, key)
		p.values[key] = value
		p.parameters[key] = def
	}
	p.returns = resp.Returns
	return true, nil
}
