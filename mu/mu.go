// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package mu provides helpers for marshalling to and unmarshalling from the
canonical TPM wire format.

Go types are marshalled as follows:
  - Unsigned integer types are marshalled big-endian in their native width.
  - Byte slices are marshalled as TPM2B structures with a 16-bit size field,
    unless the slice is a RawBytes, in which case the contents are written
    verbatim with no size field.
  - Slices of any other type are marshalled as TPML structures with a 32-bit
    count field followed by the elements.
  - Structs are marshalled field by field in declaration order.
  - Pointers are marshalled as the value being pointed to. A nil pointer is
    marshalled as the zero value of the pointed-to type.
  - Types that implement the CustomMarshaller and CustomUnmarshaller
    interfaces define their own representation, which is used for types such
    as tagged unions that have no standard layout.
*/
package mu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"

	"golang.org/x/xerrors"
)

var (
	customMarshallerType   = reflect.TypeOf((*CustomMarshaller)(nil)).Elem()
	customUnmarshallerType = reflect.TypeOf((*CustomUnmarshaller)(nil)).Elem()
	rawBytesType           = reflect.TypeOf(RawBytes(nil))
)

// CustomMarshaller is implemented by types that require custom marshalling
// behaviour because their wire representation cannot be derived from their
// layout. Implementations should use a value receiver so that values can be
// supplied directly to MarshalToBytes and MarshalToWriter. Types implementing
// this interface must also implement CustomUnmarshaller.
type CustomMarshaller interface {
	Marshal(w io.Writer) error
}

// CustomUnmarshaller is implemented by types that require custom
// unmarshalling behaviour. Implementations must use a pointer receiver.
type CustomUnmarshaller interface {
	Unmarshal(r io.Reader) error
}

// RawBytes is a byte slice that is marshalled and unmarshalled without a
// size field. The slice must be pre-allocated to the correct length by the
// caller during unmarshalling.
type RawBytes []byte

type countingWriter struct {
	w io.Writer
	n int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += n
	return n, err
}

type countingReader struct {
	r io.Reader
	n int
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += n
	return n, err
}

func writeUint(w io.Writer, val uint64, sz int) error {
	b := make([]byte, sz)
	for i := 0; i < sz; i++ {
		b[i] = byte(val >> (8 * (sz - i - 1)))
	}
	_, err := w.Write(b)
	return err
}

func readUint(r io.Reader, sz int) (uint64, error) {
	b := make([]byte, sz)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	var val uint64
	for i := 0; i < sz; i++ {
		val = val<<8 | uint64(b[i])
	}
	return val, nil
}

func marshalSizedBuffer(w io.Writer, b []byte) error {
	if len(b) > math.MaxUint16 {
		return fmt.Errorf("sized buffer length of %d is too large", len(b))
	}
	if err := writeUint(w, uint64(len(b)), 2); err != nil {
		return xerrors.Errorf("cannot write size field: %w", err)
	}
	_, err := w.Write(b)
	return err
}

func marshalValue(w io.Writer, v reflect.Value) error {
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return marshalValue(w, reflect.New(v.Type().Elem()).Elem())
	}
	if v.Type() != rawBytesType && v.Type().Implements(customMarshallerType) {
		return v.Interface().(CustomMarshaller).Marshal(w)
	}

	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return writeUint(w, v.Uint(), int(v.Type().Size()))
	case reflect.Ptr:
		return marshalValue(w, v.Elem())
	case reflect.Slice:
		if v.Type() == rawBytesType {
			_, err := w.Write(v.Bytes())
			return err
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return marshalSizedBuffer(w, v.Bytes())
		}
		if uint64(v.Len()) > math.MaxUint32 {
			return fmt.Errorf("list length of %d is too large", v.Len())
		}
		if err := writeUint(w, uint64(v.Len()), 4); err != nil {
			return xerrors.Errorf("cannot write count field: %w", err)
		}
		for i := 0; i < v.Len(); i++ {
			if err := marshalValue(w, v.Index(i)); err != nil {
				return xerrors.Errorf("cannot marshal element %d of type %s: %w", i, v.Type(), err)
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := marshalValue(w, v.Field(i)); err != nil {
				return xerrors.Errorf("cannot marshal field %s of type %s: %w", v.Type().Field(i).Name, v.Type(), err)
			}
		}
		return nil
	default:
		return fmt.Errorf("cannot marshal unsupported type %s", v.Type())
	}
}

func unmarshalValue(r io.Reader, v reflect.Value) error {
	if v.CanAddr() && reflect.PtrTo(v.Type()).Implements(customUnmarshallerType) {
		return v.Addr().Interface().(CustomUnmarshaller).Unmarshal(r)
	}

	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := readUint(r, int(v.Type().Size()))
		if err != nil {
			return err
		}
		v.SetUint(val)
		return nil
	case reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return unmarshalValue(r, v.Elem())
	case reflect.Slice:
		if v.Type() == rawBytesType {
			_, err := io.ReadFull(r, v.Bytes())
			return err
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			size, err := readUint(r, 2)
			if err != nil {
				return xerrors.Errorf("cannot read size field: %w", err)
			}
			b := reflect.MakeSlice(v.Type(), int(size), int(size))
			if _, err := io.ReadFull(r, b.Bytes()); err != nil {
				return err
			}
			v.Set(b)
			return nil
		}
		count, err := readUint(r, 4)
		if err != nil {
			return xerrors.Errorf("cannot read count field: %w", err)
		}
		s := reflect.MakeSlice(v.Type(), 0, 0)
		for i := uint64(0); i < count; i++ {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := unmarshalValue(r, elem); err != nil {
				return xerrors.Errorf("cannot unmarshal element %d of type %s: %w", i, v.Type(), err)
			}
			s = reflect.Append(s, elem)
		}
		v.Set(s)
		return nil
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := unmarshalValue(r, v.Field(i)); err != nil {
				return xerrors.Errorf("cannot unmarshal field %s of type %s: %w", v.Type().Field(i).Name, v.Type(), err)
			}
		}
		return nil
	default:
		return fmt.Errorf("cannot unmarshal unsupported type %s", v.Type())
	}
}

// MarshalToWriter marshals vals to w in the TPM wire format, according to the
// rules specified in the package description. It returns the number of bytes
// written to w.
func MarshalToWriter(w io.Writer, vals ...interface{}) (int, error) {
	cw := &countingWriter{w: w}
	for i, val := range vals {
		if val == nil {
			return cw.n, fmt.Errorf("cannot marshal nil value for argument %d", i)
		}
		if err := marshalValue(cw, reflect.ValueOf(val)); err != nil {
			return cw.n, xerrors.Errorf("cannot marshal argument %d: %w", i, err)
		}
	}
	return cw.n, nil
}

// MarshalToBytes marshals vals to a new byte slice in the TPM wire format,
// according to the rules specified in the package description.
func MarshalToBytes(vals ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := MarshalToWriter(buf, vals...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalToBytes is the same as MarshalToBytes, except that it panics if
// it encounters an error.
func MustMarshalToBytes(vals ...interface{}) []byte {
	b, err := MarshalToBytes(vals...)
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalFromReader unmarshals data in the TPM wire format from r to vals,
// according to the rules specified in the package description. The values
// supplied via vals must be non-nil pointers, or RawBytes slices that have
// been pre-allocated to the correct length. It returns the number of bytes
// consumed from r.
func UnmarshalFromReader(r io.Reader, vals ...interface{}) (int, error) {
	cr := &countingReader{r: r}
	for i, val := range vals {
		v := reflect.ValueOf(val)
		switch {
		case v.IsValid() && v.Type() == rawBytesType:
			if _, err := io.ReadFull(cr, v.Bytes()); err != nil {
				return cr.n, xerrors.Errorf("cannot unmarshal argument %d: %w", i, err)
			}
		case v.IsValid() && v.Kind() == reflect.Ptr && !v.IsNil():
			if err := unmarshalValue(cr, v.Elem()); err != nil {
				return cr.n, xerrors.Errorf("cannot unmarshal argument %d: %w", i, err)
			}
		default:
			return cr.n, fmt.Errorf("cannot unmarshal argument %d: not a non-nil pointer", i)
		}
	}
	return cr.n, nil
}

// UnmarshalFromBytes unmarshals data in the TPM wire format from b to vals,
// according to the rules specified in the package description. The values
// supplied via vals must be non-nil pointers, or RawBytes slices that have
// been pre-allocated to the correct length. It returns the number of bytes
// consumed from b.
func UnmarshalFromBytes(b []byte, vals ...interface{}) (int, error) {
	buf := bytes.NewReader(b)
	return UnmarshalFromReader(buf, vals...)
}

// IsShortBufferError indicates whether the supplied error was caused by a
// read beyond the end of the supplied buffer during unmarshalling.
func IsShortBufferError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
