package ordjson

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// CmdMethod returns the method for the passed command.  The provided command
// type must be a registered type.  All commands provided by this package are
// registered by default.
func CmdMethod(cmd interface{}) (string, error) {
	// Look up the cmd type and error out if not registered.
	rt := reflect.TypeOf(cmd)
	registerLock.RLock()
	method, ok := concreteTypeToMethod[rt]
	registerLock.RUnlock()
	if !ok {
		str := fmt.Sprintf("%q is not registered", method)
		return "", makeError(ErrUnregisteredMethod, str)
	}

	return method, nil
}

// makeParams creates a slice of interface values for the given struct.
// Trailing nil optional parameters are omitted so the marshalled command is
// as short as the registered defaults allow.
func makeParams(rt reflect.Type, rv reflect.Value) []interface{} {
	numFields := rt.NumField()
	params := make([]interface{}, 0, numFields)
	lastParam := -1
	for i := 0; i < numFields; i++ {
		rtf := rt.Field(i)
		rvf := rv.Field(i)
		params = append(params, rvf.Interface())
		if rtf.Type.Kind() == reflect.Ptr && rvf.IsNil() {
			// Omit optional null params unless a non-null param
			// follows.
			continue
		}
		lastParam = i
	}
	return params[:lastParam+1]
}

// MarshalCmd marshals the passed command to a JSON-RPC request byte slice
// that is suitable for transmission to an RPC server.  The provided command
// type must be a registered type.  All commands provided by this package are
// registered by default.
func MarshalCmd(id interface{}, cmd interface{}) ([]byte, error) {
	// Look up the cmd type and error out if not registered.
	rt := reflect.TypeOf(cmd)
	registerLock.RLock()
	method, ok := concreteTypeToMethod[rt]
	registerLock.RUnlock()
	if !ok {
		str := fmt.Sprintf("%q is not registered", method)
		return nil, makeError(ErrUnregisteredMethod, str)
	}

	// The provided command must not be nil.
	rv := reflect.ValueOf(cmd)
	if rv.IsNil() {
		str := "the specified command is nil"
		return nil, makeError(ErrInvalidType, str)
	}

	// Create a slice of interface values in the order of the struct fields
	// while respecting pointer fields as optional params and only adding
	// them if they are non-nil.
	params := makeParams(rt.Elem(), rv.Elem())

	// Generate and marshal the final JSON-RPC request.
	rawCmd, err := NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawCmd)
}

// UnmarshalCmd unmarshals a JSON-RPC request into a suitable concrete command
// so long as the method type contained within the marshalled request is
// registered.
func UnmarshalCmd(r *Request) (interface{}, error) {
	registerLock.RLock()
	rtp, ok := methodToConcreteType[r.Method]
	info := methodToInfo[r.Method]
	registerLock.RUnlock()
	if !ok {
		str := fmt.Sprintf("%q is not registered", r.Method)
		return nil, makeError(ErrUnregisteredMethod, str)
	}
	rt := rtp.Elem()
	rvp := reflect.New(rt)
	rv := rvp.Elem()

	// Ensure the number of parameters are correct.
	numParams := len(r.Params)
	if err := checkNumParams(numParams, &info); err != nil {
		return nil, err
	}

	// Loop through each of the struct fields and unmarshal the associated
	// parameter into them.
	for i := 0; i < numParams; i++ {
		rvf := rv.Field(i)
		fieldType := rt.Field(i).Type

		// Unmarshal into a new value of the field's base type and
		// assign it, allocating through the pointer for optional
		// fields.
		if fieldType.Kind() == reflect.Ptr {
			elem := reflect.New(fieldType.Elem())
			if err := json.Unmarshal(r.Params[i], elem.Interface()); err != nil {
				str := fmt.Sprintf("parameter #%d '%s' %v",
					i+1, rt.Field(i).Name, err)
				return nil, makeError(ErrInvalidType, str)
			}
			rvf.Set(elem)
			continue
		}

		if err := json.Unmarshal(r.Params[i], rvf.Addr().Interface()); err != nil {
			str := fmt.Sprintf("parameter #%d '%s' %v", i+1,
				rt.Field(i).Name, err)
			return nil, makeError(ErrInvalidType, str)
		}
	}

	// When there are less supplied parameters than the total number of
	// params, any remaining struct fields must be optional.  Thus, populate
	// them with their associated default value as needed.
	if numParams < info.maxParams {
		for i := numParams; i < info.maxParams; i++ {
			if defaultVal, ok := info.defaults[i]; ok {
				rvf := rv.Field(i)
				rvf.Set(defaultVal)
			}
		}
	}

	return rvp.Interface(), nil
}

// checkNumParams ensures the supplied number of params is at least the minimum
// required number for the command and no more than the maximum allowed.
func checkNumParams(numParams int, info *methodInfo) error {
	if numParams < info.numReqParams || numParams > info.maxParams {
		if info.numReqParams == info.maxParams {
			str := fmt.Sprintf("wrong number of params (expected "+
				"%d, received %d)", info.numReqParams,
				numParams)
			return makeError(ErrNumParams, str)
		}

		str := fmt.Sprintf("wrong number of params (expected "+
			"between %d and %d, received %d)", info.numReqParams,
			info.maxParams, numParams)
		return makeError(ErrNumParams, str)
	}

	return nil
}
