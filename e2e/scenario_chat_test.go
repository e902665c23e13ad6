package e2e

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"blindchat/domain/wire"
	"blindchat/errors"
)

type testChatSuite struct {
	BaseSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestFullChatFlow() {
	// Unique names keep reruns against a shared engine apart
	suffix := time.Now().UnixNano() % 1_000_000
	aliceName := fmt.Sprintf("alice_%d", suffix)
	bobName := fmt.Sprintf("bob_%d", suffix)
	carolName := fmt.Sprintf("carol_%d", suffix)

	alice := s.ChatClient(s.T(), "Alice")
	defer alice.Close()

	// --- STEP 1: ANNOUNCE ---
	s.Run("Step 1: Valid name is acknowledged, invalid name is refused", func() {
		s.Require().NoError(alice.Announce(aliceName))

		ghost := s.ChatClient(s.T(), "Ghost")
		defer ghost.Close()
		err := ghost.Announce(strings.Repeat("x", 40))
		s.Require().ErrorIs(err, errors.ErrInvalidUsername)
	})

	// --- STEP 2: QUEUE & PAIRING ---
	s.Run("Step 2: Reminders while alone, a chat once a partner shows up", func() {
		_, err := alice.WaitFor(wire.NoPartnerFound, 3*time.Second)
		s.Require().NoError(err, "No queue reminder while waiting alone")
	})

	bob := s.ChatClient(s.T(), "Bob")
	defer bob.Close()

	s.Run("Step 2b: Second client pairs with the first", func() {
		s.Require().NoError(bob.Announce(bobName))

		_, err := alice.WaitFor(wire.ChatFound, 3*time.Second)
		s.Require().NoError(err, "First client never learned about the chat")
		_, err = bob.WaitFor(wire.ChatFound, 3*time.Second)
		s.Require().NoError(err, "Second client never learned about the chat")
	})

	// --- STEP 3: RELAY ---
	s.Run("Step 3: Lines cross verbatim, even rude ones", func() {
		s.Require().NoError(alice.Say("Hello Bob!"))
		f, err := bob.WaitFor(wire.Text, 3*time.Second)
		s.Require().NoError(err)
		s.Require().Equal("Hello Bob!", f.Body)

		s.Require().NoError(bob.Say("Hey Alice, how are you?"))
		f, err = alice.WaitFor(wire.Text, 3*time.Second)
		s.Require().NoError(err)
		s.Require().Equal("Hey Alice, how are you?", f.Body)

		// The relay never rewrites lines, moderation only touches the archive
		s.Require().NoError(alice.Say("you moron"))
		f, err = bob.WaitFor(wire.Text, 3*time.Second)
		s.Require().NoError(err)
		s.Require().Equal("you moron", f.Body)
	})

	// --- STEP 4: HELP ECHO ---
	s.Run("Step 4: Help marker comes back to the sender only", func() {
		s.Require().NoError(alice.Help())
		_, err := alice.WaitFor(wire.Help, 3*time.Second)
		s.Require().NoError(err)
		s.Require().True(bob.Quiet(300*time.Millisecond), "Partner saw the help echo")
	})

	// --- STEP 5: DEPARTURE ---
	s.Run("Step 5: Survivor is told once and requeued, leaver is dropped", func() {
		s.Require().NoError(bob.Leave())

		_, err := alice.WaitFor(wire.PartnerLeft, 3*time.Second)
		s.Require().NoError(err, "Survivor never heard the partner left")

		// Back in the queue, reminders resume
		_, err = alice.WaitFor(wire.NoPartnerFound, 3*time.Second)
		s.Require().NoError(err, "Survivor was not requeued")

		s.Require().True(bob.Dropped(3*time.Second), "Server kept the leaver's connection open")
	})

	// --- STEP 6: SURVIVOR PAIRS AGAIN ---
	carol := s.ChatClient(s.T(), "Carol")
	defer carol.Close()

	s.Run("Step 6: Survivor pairs with the next arrival", func() {
		s.Require().NoError(carol.Announce(carolName))

		_, err := alice.WaitFor(wire.ChatFound, 3*time.Second)
		s.Require().NoError(err, "Survivor never got a second chat")
		_, err = carol.WaitFor(wire.ChatFound, 3*time.Second)
		s.Require().NoError(err, "New arrival never got a chat")
	})

	// --- STEP 7: HISTORY ---
	s.Run("Step 7: The archived chat is censored and replayable", func() {
		// Archiving runs behind the moderation pipeline, poll until visible
		var reply string
		s.Require().Eventually(func() bool {
			if err := alice.History(); err != nil {
				return false
			}
			r, err := alice.ReadHistoryReply(2 * time.Second)
			if err != nil || r == noHistoryReply {
				return false
			}
			reply = r
			return true
		}, 10*time.Second, 300*time.Millisecond, "Archived chat never became visible")

		s.Require().Contains(reply, "Chat with "+bobName)
		s.Require().Contains(reply, aliceName+": Hello Bob!")
		s.Require().Contains(reply, bobName+": Hey Alice, how are you?")
		// The rude line went through moderation on its way to the archive
		s.Require().Contains(reply, aliceName+": you *****")
		s.Require().NotContains(reply, "moron")
	})
}
