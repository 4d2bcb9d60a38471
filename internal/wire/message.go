package wire

// Tag is the numeric message type. Tags below 100 travel on the reliable
// stream; the rest are unreliable.
type Tag uint8

const (
	TagConnect   Tag = 1
	TagJoin      Tag = 3
	TagLeave     Tag = 4
	TagChat      Tag = 5
	TagAdd       Tag = 6
	TagRemove    Tag = 7
	TagSelection Tag = 8
	TagName      Tag = 9
	TagSynced    Tag = 10
	TagKill      Tag = 11

	TagStats      Tag = 101
	TagInput      Tag = 103
	TagCollision  Tag = 105
	TagDisconnect Tag = 106
	TagReject     Tag = 107

	TagUpdate       Tag = 110
	TagUpdatePos    Tag = 111
	TagUpdateRay    Tag = 112
	TagUpdateCircle Tag = 113
	TagUpdateShip   Tag = 114

	TagDiscovery Tag = 200
)

// Reliable reports whether the tag travels on the reliable stream.
func (t Tag) Reliable() bool { return t < 100 }

// IsUpdate reports whether the tag opens an entity snapshot batch.
func (t Tag) IsUpdate() bool { return t >= TagUpdate && t <= TagUpdateShip }

// Payload is one decoded message body. Packing never writes the seqno; the
// queue stamps the per-destination seqno at transmission time.
type Payload interface {
	Tag() Tag
	pack(b *Buffer)
	unpack(b *Buffer) bool
}

// Connect opens the handshake.
type Connect struct {
	Rev  uint8
	Nick string
}

func (Connect) Tag() Tag { return TagConnect }

func (m Connect) pack(b *Buffer) {
	b.PutU8(m.Rev)
	b.PutString(m.Nick)
}

func (m *Connect) unpack(b *Buffer) bool {
	var ok bool
	if m.Rev, ok = b.GetU8(); !ok {
		return false
	}
	m.Nick, ok = b.GetString()
	return ok
}

// Join announces a player to everyone.
type Join struct {
	Player Id
	Nick   string
}

func (Join) Tag() Tag { return TagJoin }

func (m Join) pack(b *Buffer) {
	b.PutID(m.Player)
	b.PutString(m.Nick)
}

func (m *Join) unpack(b *Buffer) bool {
	var ok bool
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	m.Nick, ok = b.GetString()
	return ok
}

// Leave announces a departure with a reason code.
type Leave struct {
	Player Id
	Reason uint8
}

func (Leave) Tag() Tag { return TagLeave }

func (m Leave) pack(b *Buffer) {
	b.PutID(m.Player)
	b.PutU8(m.Reason)
}

func (m *Leave) unpack(b *Buffer) bool {
	var ok bool
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	m.Reason, ok = b.GetU8()
	return ok
}

// Chat relays a text line.
type Chat struct {
	Player Id
	Text   string
}

func (Chat) Tag() Tag { return TagChat }

func (m Chat) pack(b *Buffer) {
	b.PutID(m.Player)
	b.PutString(m.Text)
}

func (m *Chat) unpack(b *Buffer) bool {
	var ok bool
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	m.Text, ok = b.GetString()
	return ok
}

// Add announces a new entity.
type Add struct {
	Entity Id
	Player Id
	Type   uint8
}

func (Add) Tag() Tag { return TagAdd }

func (m Add) pack(b *Buffer) {
	b.PutID(m.Entity)
	b.PutID(m.Player)
	b.PutU8(m.Type)
}

func (m *Add) unpack(b *Buffer) bool {
	var ok bool
	if m.Entity, ok = b.GetID(); !ok {
		return false
	}
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	m.Type, ok = b.GetU8()
	return ok
}

// Remove announces entity destruction.
type Remove struct {
	Entity Id
}

func (Remove) Tag() Tag { return TagRemove }

func (m Remove) pack(b *Buffer) { b.PutID(m.Entity) }

func (m *Remove) unpack(b *Buffer) bool {
	var ok bool
	m.Entity, ok = b.GetID()
	return ok
}

// Selection carries ship and weapon loadout choices.
type Selection struct {
	Player  Id
	Ship    uint8
	Weapons [4]uint8
}

func (Selection) Tag() Tag { return TagSelection }

func (m Selection) pack(b *Buffer) {
	b.PutID(m.Player)
	b.PutU8(m.Ship)
	for _, w := range m.Weapons {
		b.PutU8(w)
	}
}

func (m *Selection) unpack(b *Buffer) bool {
	var ok bool
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	if m.Ship, ok = b.GetU8(); !ok {
		return false
	}
	for i := range m.Weapons {
		if m.Weapons[i], ok = b.GetU8(); !ok {
			return false
		}
	}
	return true
}

// Name renames a player.
type Name struct {
	Player Id
	Nick   string
}

func (Name) Tag() Tag { return TagName }

func (m Name) pack(b *Buffer) {
	b.PutID(m.Player)
	b.PutString(m.Nick)
}

func (m *Name) unpack(b *Buffer) bool {
	var ok bool
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	m.Nick, ok = b.GetString()
	return ok
}

// Synced marks the end of the initial game-state download.
type Synced struct{}

func (Synced) Tag() Tag { return TagSynced }

func (Synced) pack(*Buffer) {}

func (*Synced) unpack(*Buffer) bool { return true }

// Kill credits a kill to a player.
type Kill struct {
	Killer Id
	Victim Id
}

func (Kill) Tag() Tag { return TagKill }

func (m Kill) pack(b *Buffer) {
	b.PutID(m.Killer)
	b.PutID(m.Victim)
}

func (m *Kill) unpack(b *Buffer) bool {
	var ok bool
	if m.Killer, ok = b.GetID(); !ok {
		return false
	}
	m.Victim, ok = b.GetID()
	return ok
}

// StatsEntry is one player's scoreboard line.
type StatsEntry struct {
	Player Id
	Kills  uint16
	Deaths uint16
	Ping   uint16
}

// Stats carries the periodic scoreboard.
type Stats struct {
	Entries []StatsEntry
}

func (Stats) Tag() Tag { return TagStats }

func (m Stats) pack(b *Buffer) {
	b.PutU8(uint8(len(m.Entries)))
	for _, e := range m.Entries {
		b.PutID(e.Player)
		b.PutU16(e.Kills)
		b.PutU16(e.Deaths)
		b.PutU16(e.Ping)
	}
}

func (m *Stats) unpack(b *Buffer) bool {
	n, ok := b.GetU8()
	if !ok {
		return false
	}
	m.Entries = make([]StatsEntry, n)
	for i := range m.Entries {
		e := &m.Entries[i]
		if e.Player, ok = b.GetID(); !ok {
			return false
		}
		if e.Kills, ok = b.GetU16(); !ok {
			return false
		}
		if e.Deaths, ok = b.GetU16(); !ok {
			return false
		}
		if e.Ping, ok = b.GetU16(); !ok {
			return false
		}
	}
	return true
}

// Input is one latched input frame from a client. Button bytes carry one bit
// per sampled frame so dropped packets fold into the next delivery.
type Input struct {
	Player      Id
	FrameNo     uint32
	Forwards    uint8
	Backwards   uint8
	TurnLeft    uint8
	TurnRight   uint8
	StrafeLeft  uint8
	StrafeRight uint8
	Fire1       uint8
	Fire2       uint8
	Fire3       uint8
	Fire4       uint8
	AimX        int16
	AimY        int16
}

func (Input) Tag() Tag { return TagInput }

func (m Input) pack(b *Buffer) {
	b.PutID(m.Player)
	b.PutU32(m.FrameNo)
	b.PutU8(m.Forwards)
	b.PutU8(m.Backwards)
	b.PutU8(m.TurnLeft)
	b.PutU8(m.TurnRight)
	b.PutU8(m.StrafeLeft)
	b.PutU8(m.StrafeRight)
	b.PutU8(m.Fire1)
	b.PutU8(m.Fire2)
	b.PutU8(m.Fire3)
	b.PutU8(m.Fire4)
	b.PutI16(m.AimX)
	b.PutI16(m.AimY)
}

func (m *Input) unpack(b *Buffer) bool {
	var ok bool
	if m.Player, ok = b.GetID(); !ok {
		return false
	}
	if m.FrameNo, ok = b.GetU32(); !ok {
		return false
	}
	for _, field := range []*uint8{
		&m.Forwards, &m.Backwards, &m.TurnLeft, &m.TurnRight,
		&m.StrafeLeft, &m.StrafeRight, &m.Fire1, &m.Fire2, &m.Fire3, &m.Fire4,
	} {
		if *field, ok = b.GetU8(); !ok {
			return false
		}
	}
	if m.AimX, ok = b.GetI16(); !ok {
		return false
	}
	m.AimY, ok = b.GetI16()
	return ok
}

// Collision reports an impact with its contact point.
type Collision struct {
	E0 Id
	E1 Id
	X  int16
	Y  int16
}

func (Collision) Tag() Tag { return TagCollision }

func (m Collision) pack(b *Buffer) {
	b.PutID(m.E0)
	b.PutID(m.E1)
	b.PutI16(m.X)
	b.PutI16(m.Y)
}

func (m *Collision) unpack(b *Buffer) bool {
	var ok bool
	if m.E0, ok = b.GetID(); !ok {
		return false
	}
	if m.E1, ok = b.GetID(); !ok {
		return false
	}
	if m.X, ok = b.GetI16(); !ok {
		return false
	}
	m.Y, ok = b.GetI16()
	return ok
}

// Disconnect is the graceful goodbye.
type Disconnect struct{}

func (Disconnect) Tag() Tag { return TagDisconnect }

func (Disconnect) pack(*Buffer) {}

func (*Disconnect) unpack(*Buffer) bool { return true }

// Reject refuses a handshake.
type Reject struct {
	Reason uint8
}

func (Reject) Tag() Tag { return TagReject }

func (m Reject) pack(b *Buffer) { b.PutU8(m.Reason) }

func (m *Reject) unpack(b *Buffer) bool {
	var ok bool
	m.Reason, ok = b.GetU8()
	return ok
}

// UpdateHeader opens a snapshot batch of Count records in the format bound
// to Kind. The records follow immediately, packed by the format itself.
type UpdateHeader struct {
	Kind  Tag
	Count uint8
}

func (m UpdateHeader) Tag() Tag { return m.Kind }

func (m UpdateHeader) pack(b *Buffer) { b.PutU8(m.Count) }

func (m *UpdateHeader) unpack(b *Buffer) bool {
	var ok bool
	m.Count, ok = b.GetU8()
	return ok
}

// PackMessage frames one message: tag, seqno, payload. It reports false and
// leaves the buffer untouched when the packet boundary would be crossed.
func PackMessage(b *Buffer, seqno uint32, p Payload) bool {
	return b.PutRecord(func(b *Buffer) {
		b.PutU8(uint8(p.Tag()))
		b.PutU32(seqno)
		p.pack(b)
	})
}

// UnpackMessage consumes one framed message. ok is false on truncation or an
// unknown tag, in which case the remainder of the datagram is unusable.
func UnpackMessage(b *Buffer) (Payload, uint32, bool) {
	tag, ok := b.GetU8()
	if !ok {
		return nil, 0, false
	}
	seqno, ok := b.GetU32()
	if !ok {
		return nil, 0, false
	}
	var p Payload
	switch Tag(tag) {
	case TagConnect:
		p = &Connect{}
	case TagJoin:
		p = &Join{}
	case TagLeave:
		p = &Leave{}
	case TagChat:
		p = &Chat{}
	case TagAdd:
		p = &Add{}
	case TagRemove:
		p = &Remove{}
	case TagSelection:
		p = &Selection{}
	case TagName:
		p = &Name{}
	case TagSynced:
		p = &Synced{}
	case TagKill:
		p = &Kill{}
	case TagStats:
		p = &Stats{}
	case TagInput:
		p = &Input{}
	case TagCollision:
		p = &Collision{}
	case TagDisconnect:
		p = &Disconnect{}
	case TagReject:
		p = &Reject{}
	case TagUpdate, TagUpdatePos, TagUpdateRay, TagUpdateCircle, TagUpdateShip:
		p = &UpdateHeader{Kind: Tag(tag)}
	default:
		return nil, 0, false
	}
	if !p.unpack(b) {
		return nil, 0, false
	}
	return p, seqno, true
}

// PackHeader writes the 8-byte datagram header.
func PackHeader(b *Buffer, ack uint32) {
	b.PutU32(AppID)
	b.PutU32(ack)
}

// UnpackHeader consumes the datagram header and reports the piggybacked ack.
// ok is false on truncation or an app id mismatch.
func UnpackHeader(b *Buffer) (ack uint32, ok bool) {
	appID, ok := b.GetU32()
	if !ok || appID != AppID {
		return 0, false
	}
	return b.GetU32()
}

// Discovery is the standalone multicast announcement.
type Discovery struct {
	AppID uint32
	Rev   uint8
	Port  uint16
}

// PackDiscovery writes the announcement datagram. It is not framed as a
// message: there is no header, seqno, or reliability class.
func PackDiscovery(b *Buffer, d Discovery) {
	b.PutU32(uint32(TagDiscovery))
	b.PutU32(d.AppID)
	b.PutU8(d.Rev)
	b.PutU16(d.Port)
}

// UnpackDiscovery consumes an announcement datagram.
func UnpackDiscovery(b *Buffer) (Discovery, bool) {
	tag, ok := b.GetU32()
	if !ok || tag != uint32(TagDiscovery) {
		return Discovery{}, false
	}
	var d Discovery
	if d.AppID, ok = b.GetU32(); !ok {
		return Discovery{}, false
	}
	if d.Rev, ok = b.GetU8(); !ok {
		return Discovery{}, false
	}
	d.Port, ok = b.GetU16()
	return d, ok
}
