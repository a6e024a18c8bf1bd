// Package risk scores the security posture of the host before sensitive
// authentication actions.
//
// An [Assessment] combines four probe families: device integrity
// (jailbreak, root, debugger, emulator), network, application integrity and
// session validity. Only device signals are weighted:
//
//	jailbroken 3, rooted 3, debugging 1, emulator 2
//	total >= 5 critical, >= 3 high, >= 1 medium, otherwise low
//
// The other families contribute threats but never change the level. A probe
// that fails reports a critical assessment with the single threat
// "Security check failed".
//
// Device signals are cached for [DefaultCacheTTL]; callers pass force to
// bypass the cache.
package risk
