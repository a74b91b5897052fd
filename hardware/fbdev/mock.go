package fbdev

// Mock implements Conn for tests: canned screen info, recorded calls,
// injectable failures.
type Mock struct {
	FixInfo FixScreenInfo
	VarInfo VarScreenInfo

	PutVarErr error
	PanErr    error
	MapErr    error
	CommitErr error

	Calls   []string
	PutVars []VarScreenInfo
	Pans    []VarScreenInfo
	Commits []MdpDisplayCommit
	MapLen  int
	Mem     []byte
	Closed  bool
}

var _ Conn = new(Mock)

// NewMock mimics a packed-pixel truecolor 32bpp panel of the given size.
func NewMock(w, h uint32) *Mock {
	self := &Mock{}
	copy(self.FixInfo.ID[:], "mock")
	self.FixInfo.Type = FB_TYPE_PACKED_PIXELS
	self.FixInfo.Visual = FB_VISUAL_TRUECOLOR
	self.FixInfo.LineLength = w * 4
	self.FixInfo.SmemLen = w * h * 4
	self.FixInfo.SmemStart = 0x8000_0000
	self.VarInfo.Xres = w
	self.VarInfo.Yres = h
	self.VarInfo.XresVirtual = w
	self.VarInfo.YresVirtual = h
	self.VarInfo.BitsPerPixel = 32
	return self
}

func (self *Mock) Name() string       { return "mock" }
func (self *Mock) Fix() FixScreenInfo { return self.FixInfo }
func (self *Mock) Var() VarScreenInfo { return self.VarInfo }

func (self *Mock) PutVar(v *VarScreenInfo) error {
	self.Calls = append(self.Calls, "putvar")
	self.PutVars = append(self.PutVars, *v)
	return self.PutVarErr
}

func (self *Mock) Pan(v *VarScreenInfo) error {
	self.Calls = append(self.Calls, "pan")
	self.Pans = append(self.Pans, *v)
	return self.PanErr
}

func (self *Mock) Map(length int) ([]byte, error) {
	self.Calls = append(self.Calls, "map")
	if self.MapErr != nil {
		return nil, self.MapErr
	}
	self.MapLen = length
	self.Mem = make([]byte, length)
	return self.Mem, nil
}

func (self *Mock) Unmap() error {
	self.Calls = append(self.Calls, "unmap")
	self.Mem = nil
	return nil
}

func (self *Mock) Commit(c *MdpDisplayCommit) error {
	self.Calls = append(self.Calls, "commit")
	self.Commits = append(self.Commits, *c)
	return self.CommitErr
}

func (self *Mock) Close() error {
	self.Calls = append(self.Calls, "close")
	self.Closed = true
	return nil
}

// CountCalls returns how many times the named call was recorded.
func (self *Mock) CountCalls(name string) int {
	n := 0
	for _, c := range self.Calls {
		if c == name {
			n++
		}
	}
	return n
}
