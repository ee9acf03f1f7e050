package artifact

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// addresser is anything that has an on-chain address, like deployed contract
// handles.
type addresser interface {
	Address() common.Address
}

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// maxExactFloat is the largest integer float64 holds without rounding.
const maxExactFloat = 1 << 53

// convert turns v into a Go value the ABI encoder accepts for type t. Native
// values are accepted as well as loosely typed ones coming from YAML or
// command line (strings, generic numbers, lists).
func convert(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.BoolTy:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
	case abi.StringTy:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case abi.IntTy, abi.UintTy:
		return toInteger(t, v)
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		return toList(t, v)
	default:
		return nil, fmt.Errorf("type %s is not supported", t)
	}
	return nil, fmt.Errorf("can't use %T as %s", v, t)
}

func toAddress(v any) (any, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case addresser:
		return x.Address(), nil
	case string:
		if !common.IsHexAddress(x) {
			return nil, fmt.Errorf("invalid address %q", x)
		}
		return common.HexToAddress(x), nil
	}
	return nil, fmt.Errorf("can't use %T as address", v)
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		if !strings.HasPrefix(x, "0x") {
			x = "0x" + x
		}
		return hexutil.Decode(x)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return b, nil
	}
	return nil, fmt.Errorf("can't use %T as bytes", v)
}

func toBig(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, errors.New("nil integer")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) || x != math.Trunc(x) {
			return nil, fmt.Errorf("%v is not an integer", x)
		}
		if math.Abs(x) > maxExactFloat {
			return nil, fmt.Errorf("%v can't be represented exactly, quote it as a string", x)
		}
		i, _ := big.NewFloat(x).Int(nil)
		return i, nil
	case string:
		i, ok := new(big.Int).SetString(x, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
		return i, nil
	}
	return nil, fmt.Errorf("can't use %T as integer", v)
}

func toInteger(t abi.Type, v any) (any, error) {
	i, err := toBig(v)
	if err != nil {
		return nil, err
	}
	if t.T == abi.UintTy {
		if i.Sign() < 0 || i.BitLen() > t.Size {
			return nil, fmt.Errorf("%s doesn't fit into %s", i, t)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		minVal := new(big.Int).Neg(limit)
		if i.Cmp(minVal) < 0 || i.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("%s doesn't fit into %s", i, t)
		}
	}
	goType := t.GetType()
	if goType == bigIntType {
		return i, nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(i.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(i.Int64()).Convert(goType).Interface(), nil
}

func toList(t abi.Type, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("can't use %T as %s", v, t)
	}
	n := rv.Len()
	var res reflect.Value
	if t.T == abi.ArrayTy {
		if n != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, n)
		}
		res = reflect.New(t.GetType()).Elem()
	} else {
		res = reflect.MakeSlice(t.GetType(), n, n)
	}
	for i := 0; i < n; i++ {
		e, err := convert(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element #%d: %w", i, err)
		}
		res.Index(i).Set(reflect.ValueOf(e))
	}
	return res.Interface(), nil
}
