// Package archive opens password protected ZIP and RAR archives and answers
// one question about them: does a given password decrypt every protected
// entry?
//
// The Oracle type is the verification oracle used by the attack. It never
// writes decrypted data anywhere; entries are streamed into io.Discard so
// that the CRC (ZipCrypto, RAR) or HMAC (WinZip AES) check runs over the
// whole entry. Extract is the only function that writes to disk and is
// called only once the password is known.
package archive
