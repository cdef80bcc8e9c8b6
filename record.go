package bind

type recordFlags uint8

const (
	flagObservable recordFlags = 1 << iota
	flagReadOnly
	flagDestroyScheduled
	flagStale        // value may be out of date until the next pass
	flagQueuedOneWay // queued for a one-way push in the current pass
)

// record is the store entry behind a Handle.
type record struct {
	kind   InstanceKind
	flags  recordFlags
	change ChangeReason // pending reason, 0 if not queued

	// Property bookkeeping.
	owner    Handle
	def      PropertyDefinition
	methods  PropertyMethods
	observer ObserverMethods

	// Binding edge to the source. Zero source means unbound.
	source    Handle
	mode      BindingMode
	converter Converter

	dependents []Handle // targets bound to this record
	properties []Handle // properties owned by this record
}

func (r *record) has(f recordFlags) bool { return r.flags&f != 0 }

func (r *record) alive() bool { return r.flags&flagDestroyScheduled == 0 }

func (r *record) bound() bool { return r.source.IsValid() }

func removeHandle(list []Handle, h Handle) []Handle {
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
