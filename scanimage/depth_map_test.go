package scanimage

import (
	"encoding/binary"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDecodeRawDepth16(t *testing.T) {
	// Millimeter samples: 0 (no reading), 250, 400.
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[2:], 250)
	binary.LittleEndian.PutUint16(buf[4:], 400)

	dm, err := DecodeRawDepth16(buf, 3, 1, 0.001)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.GetDepth(0, 0), test.ShouldAlmostEqual, 0)
	test.That(t, dm.GetDepth(1, 0), test.ShouldAlmostEqual, 0.25, 1e-6)
	test.That(t, dm.GetDepth(2, 0), test.ShouldAlmostEqual, 0.4, 1e-6)
	test.That(t, dm.ValidCount(0.1, 0.5), test.ShouldEqual, 2)

	_, err = DecodeRawDepth16(buf, 2, 2, 0.001)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeRawDepthFloat32(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(0.3))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(math.NaN())))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(0.7))

	dm, err := DecodeRawDepthFloat32(buf, 3, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.GetDepth(0, 0), test.ShouldAlmostEqual, 0.3, 1e-6)
	// NaN decodes to the no-reading marker.
	test.That(t, dm.GetDepth(1, 0), test.ShouldAlmostEqual, 0)
	// 0.7 decodes fine but is out of the working range.
	test.That(t, dm.ValidCount(0.1, 0.5), test.ShouldEqual, 1)
}

func TestIsValidDepth(t *testing.T) {
	test.That(t, IsValidDepth(0.3, 0.1, 0.5), test.ShouldBeTrue)
	test.That(t, IsValidDepth(0, 0.1, 0.5), test.ShouldBeFalse)
	test.That(t, IsValidDepth(math.NaN(), 0.1, 0.5), test.ShouldBeFalse)
	// The interval is open at both ends.
	test.That(t, IsValidDepth(0.1, 0.1, 0.5), test.ShouldBeFalse)
	test.That(t, IsValidDepth(0.5, 0.1, 0.5), test.ShouldBeFalse)
}

func TestKeepForeground(t *testing.T) {
	dm := NewEmptyDepthMap(4, 1)
	dm.Set(0, 0, 0.2)
	dm.Set(1, 0, 0.3)
	dm.Set(2, 0, 0.4)
	dm.Set(3, 0, 0.45)

	dm.KeepForeground(0.5, 0.1, 0.5)
	test.That(t, dm.GetDepth(0, 0), test.ShouldAlmostEqual, 0.2, 1e-6)
	test.That(t, dm.GetDepth(1, 0), test.ShouldAlmostEqual, 0.3, 1e-6)
	test.That(t, dm.GetDepth(2, 0), test.ShouldAlmostEqual, 0)
	test.That(t, dm.GetDepth(3, 0), test.ShouldAlmostEqual, 0)

	// Out-of-range percentiles leave the map alone.
	dm.Set(2, 0, 0.4)
	dm.KeepForeground(0, 0.1, 0.5)
	test.That(t, dm.GetDepth(2, 0), test.ShouldAlmostEqual, 0.4, 1e-6)
	dm.KeepForeground(1, 0.1, 0.5)
	test.That(t, dm.GetDepth(2, 0), test.ShouldAlmostEqual, 0.4, 1e-6)
}
